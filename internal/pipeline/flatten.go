package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"variation-pipeline/internal/model"
	"variation-pipeline/pkg/utils"

	"go.uber.org/zap"
)

// subField maps a key of a nested element to a flat column
type subField struct {
	Column string
	Key    string
	Join   bool // the value is a list joined with ", "
}

// nestedField is a nested-collection field and the columns derived from its first element
type nestedField struct {
	Name    string
	Columns []subField
}

// nestedFields is applied in this order. Later fields overwrite columns of the
// same name written by earlier ones: "sources" ends up from
// clinicalSignificances, "source" from populationFrequencies, and "type"
// from clinicalSignificances replaces the feature's own type.
var nestedFields = []nestedField{
	{
		Name: model.FieldXrefs,
		Columns: []subField{
			{Column: "name", Key: "name"},
			{Column: "id", Key: "id"},
			{Column: "url", Key: "url"},
			{Column: "alternativeUrl", Key: "alternativeUrl"},
		},
	},
	{
		Name: model.FieldPredictions,
		Columns: []subField{
			{Column: "PredictionValType", Key: "predictionValType"},
			{Column: "predictorType", Key: "predictorType"},
			{Column: "score", Key: "score"},
			{Column: "predAlgorithmNameType", Key: "predAlgorithmNameType"},
			{Column: "sources", Key: "sources", Join: true},
		},
	},
	{
		Name: model.FieldLocations,
		Columns: []subField{
			{Column: "loc", Key: "loc"},
			{Column: "seqId", Key: "seqId"},
			{Column: "source", Key: "source"},
		},
	},
	{
		Name: model.FieldClinicalSignificances,
		Columns: []subField{
			{Column: "type", Key: "type"},
			{Column: "sources", Key: "sources", Join: true},
			{Column: "reviewStatus", Key: "reviewStatus"},
		},
	},
	{
		Name: model.FieldPopulationFrequencies,
		Columns: []subField{
			{Column: "populationName", Key: "populationName"},
			{Column: "frequency", Key: "frequency"},
			{Column: "source", Key: "source"},
		},
	},
}

func isNestedField(name string) bool {
	for _, f := range nestedFields {
		if f.Name == name {
			return true
		}
	}
	return false
}

// FlattenRecordSet projects the features of a record set into a flat table.
// Each feature becomes one row. Nested-collection fields are replaced by
// columns taken from their first element only; blank, missing or malformed
// cells yield blank values.
func FlattenRecordSet(name string, set *model.RawRecordSet) *model.FlatTable {
	table := &model.FlatTable{
		Name:    name,
		Columns: make([]string, 0),
		Rows:    make([]model.FlatRow, 0, len(set.Features)),
	}

	present := make(map[string]bool)
	for _, feature := range set.Features {
		row := make(model.FlatRow, len(feature.Keys))
		for _, key := range feature.Keys {
			table.AddColumn(key)
			if isNestedField(key) {
				present[key] = true
				continue
			}
			row[key] = utils.FormatCell(feature.Values[key])
		}
		table.Rows = append(table.Rows, row)
	}

	for _, field := range nestedFields {
		if !present[field.Name] {
			continue
		}
		for _, sf := range field.Columns {
			table.AddColumn(sf.Column)
		}
		for i, feature := range set.Features {
			cell, _ := feature.Get(field.Name)
			first, ok := firstMapping(cell)
			for _, sf := range field.Columns {
				value := ""
				if ok {
					value = sf.extract(first)
				}
				table.Rows[i][sf.Column] = value
			}
		}
		table.RemoveColumn(field.Name)
	}

	return table
}

func (sf subField) extract(element map[string]interface{}) string {
	v, ok := element[sf.Key]
	if !ok {
		return ""
	}
	if sf.Join {
		return utils.JoinValues(v)
	}
	return utils.FormatCell(v)
}

// firstMapping interprets a cell as a sequence of mappings and returns the
// first one. A cell may hold the decoded sequence or its JSON text.
func firstMapping(cell interface{}) (map[string]interface{}, bool) {
	switch val := cell.(type) {
	case []interface{}:
		if len(val) == 0 {
			return nil, false
		}
		m, ok := val[0].(map[string]interface{})
		return m, ok
	case string:
		if utils.IsBlank(val) {
			return nil, false
		}
		dec := json.NewDecoder(strings.NewReader(val))
		dec.UseNumber()
		var list []interface{}
		if err := dec.Decode(&list); err != nil {
			return nil, false
		}
		if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
			return nil, false
		}
		return firstMapping(list)
	default:
		return nil, false
	}
}

// FlattenFile flattens one stored record set into <csv_dir>/<stem>.csv
func (p *Pipeline) FlattenFile(path string) (*model.FlatTable, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read %s: %w", path, err)
	}

	set, err := DecodeRecordSet(data)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode %s: %w", path, err)
	}

	stem := utils.Stem(path)
	table := FlattenRecordSet(stem, set)

	out := p.artifacts.CSVPath(stem)
	if err := WriteTable(out, table); err != nil {
		return nil, "", err
	}
	return table, out, nil
}

// FlattenAll flattens every JSON artifact present in the json folder, not
// only the ones fetched by this run.
func (p *Pipeline) FlattenAll(ctx context.Context) model.StageResult {
	tracker := newStageTracker(model.StageFlatten, p.logger, p.metrics)

	files, err := utils.ListFiles(p.cfg.Paths.JSONDir, ".json")
	if err != nil {
		tracker.fail(p.cfg.Paths.JSONDir, err)
		return tracker.finish()
	}
	p.logger.Info("🔄 Starting flatten stage", zap.Int("files", len(files)))

	for _, file := range files {
		if ctx.Err() != nil {
			break
		}
		table, out, err := p.FlattenFile(file)
		if err != nil {
			tracker.fail(file, err)
			continue
		}
		tracker.succeed(file, fmt.Sprintf("parsed data saved to %s", out),
			zap.Int("rows", len(table.Rows)),
			zap.Int("columns", len(table.Columns)),
		)
	}

	return tracker.finish()
}
