package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"

	"variation-pipeline/internal/model"
	"variation-pipeline/pkg/utils"

	"go.uber.org/zap"
)

// BlankCategory replaces blank or missing category values
const BlankCategory = "(blank)"

// PartitionTable groups rows by the value of column. Blank values are
// normalised to BlankCategory and the normalised value is what the partition
// rows carry. Partitions come out in first-seen order and keep row order.
// The input table is not modified.
func PartitionTable(table *model.FlatTable, column string) ([]model.CategoryPartition, error) {
	if !table.HasColumn(column) {
		return nil, fmt.Errorf("%w: %q in %s", ErrColumnMissing, column, table.Name)
	}

	index := make(map[string]int)
	partitions := make([]model.CategoryPartition, 0)

	for _, row := range table.Rows {
		value := row[column]
		if utils.IsBlank(value) {
			value = BlankCategory
		}

		copied := make(model.FlatRow, len(row))
		for k, v := range row {
			copied[k] = v
		}
		copied[column] = value

		i, ok := index[value]
		if !ok {
			i = len(partitions)
			index[value] = i
			partitions = append(partitions, model.CategoryPartition{Value: value})
		}
		partitions[i].Rows = append(partitions[i].Rows, copied)
	}

	return partitions, nil
}

// PartitionFile splits one flat table into <sort_dir>/<stem>/<value>.csv files.
// When the partition column is missing nothing is written and the returned
// error wraps ErrColumnMissing.
func (p *Pipeline) PartitionFile(path string) ([]string, error) {
	table, err := ReadTable(path)
	if err != nil {
		return nil, err
	}

	dir := p.artifacts.PartitionDir(table.Name)
	if p.cfg.Partition.ClearBeforeWrite {
		if err := os.RemoveAll(dir); err != nil {
			return nil, fmt.Errorf("failed to clear %s: %w", dir, err)
		}
	}

	partitions, err := PartitionTable(table, p.cfg.Partition.Column)
	if err != nil {
		return nil, err
	}

	written := make([]string, 0, len(partitions))
	used := make(map[string]bool)
	for _, part := range partitions {
		if len(part.Rows) == 0 {
			continue
		}

		out := p.artifacts.PartitionPath(table.Name, part.Value)
		for n := 2; used[out]; n++ {
			out = p.artifacts.PartitionPath(table.Name, fmt.Sprintf("%s_%d", part.Value, n))
		}
		used[out] = true

		sub := &model.FlatTable{Name: part.Value, Columns: table.Columns, Rows: part.Rows}
		if err := WriteTable(out, sub); err != nil {
			return written, err
		}
		written = append(written, out)
	}
	return written, nil
}

// PartitionAll partitions every flat table present in the csv folder
func (p *Pipeline) PartitionAll(ctx context.Context) model.StageResult {
	tracker := newStageTracker(model.StagePartition, p.logger, p.metrics)

	files, err := utils.ListFiles(p.cfg.Paths.CSVDir, ".csv")
	if err != nil {
		tracker.fail(p.cfg.Paths.CSVDir, err)
		return tracker.finish()
	}
	p.logger.Info("📊 Starting partition stage",
		zap.Int("files", len(files)),
		zap.String("column", p.cfg.Partition.Column),
	)

	for _, file := range files {
		if ctx.Err() != nil {
			break
		}
		written, err := p.PartitionFile(file)
		switch {
		case errors.Is(err, ErrColumnMissing):
			tracker.skip(file, fmt.Sprintf("'%s' column not found in %s, skipping", p.cfg.Partition.Column, file))
		case err != nil:
			tracker.fail(file, err)
		default:
			stem := utils.Stem(file)
			tracker.succeed(file, fmt.Sprintf("created folder %s with filtered files", p.artifacts.PartitionDir(stem)),
				zap.Int("partitions", len(written)),
			)
		}
	}

	return tracker.finish()
}
