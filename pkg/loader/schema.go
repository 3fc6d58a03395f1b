package loader

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/Dicklesworthstone/parts_viewer/pkg/model"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS part_classifications (
		id INTEGER PRIMARY KEY,
		description TEXT NOT NULL UNIQUE,
		asset BOOLEAN
	)`,
	`CREATE TABLE IF NOT EXISTS part_unit_names (
		id INTEGER PRIMARY KEY,
		unit TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS part_units (
		id INTEGER PRIMARY KEY,
		unit_name_id INTEGER NOT NULL REFERENCES part_unit_names(id),
		unit_qty REAL NOT NULL DEFAULT 1
	)`,
	`CREATE TABLE IF NOT EXISTS parts (
		id INTEGER PRIMARY KEY,
		part_no TEXT NOT NULL UNIQUE,
		description TEXT,
		classification_id INTEGER NOT NULL REFERENCES part_classifications(id),
		unit_id INTEGER NOT NULL REFERENCES part_units(id),
		stock_count INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS models (
		id INTEGER PRIMARY KEY,
		model TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS model_parts (
		model_id INTEGER NOT NULL REFERENCES models(id),
		part_id INTEGER NOT NULL REFERENCES parts(id),
		PRIMARY KEY (model_id, part_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_model_parts_part ON model_parts(part_id)`,
}

// seedTables lists tables in delete order (children first).
var seedTables = []string{
	"model_parts", "models", "parts", "part_units", "part_unit_names", "part_classifications",
}

// InitSchema creates the parts tables if they do not exist.
func (s *Store) InitSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// Seed replaces the contents of the parts tables with parts. Classification,
// unit and model rows are derived from the parts themselves. A part's unit of
// measure is stored as a unit name with quantity 1.
func (s *Store) Seed(ctx context.Context, parts []model.Part) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, table := range seedTables {
		if _, err = tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	classes := make(map[string]int64)
	units := make(map[string]int64)
	models := make(map[string]int64)

	for i, p := range parts {
		if err = p.Validate(); err != nil {
			return err
		}

		classID, ok := classes[p.Classification]
		if !ok {
			classID = int64(len(classes) + 1)
			classes[p.Classification] = classID
			var asset any
			if p.IsRotable != nil {
				asset = *p.IsRotable
			}
			if err = s.exec(ctx, tx, `INSERT INTO part_classifications (id, description, asset) VALUES (?, ?, ?)`,
				classID, p.Classification, asset); err != nil {
				return fmt.Errorf("insert classification: %w", err)
			}
		}

		unitName := p.Unit()
		if unitName == "" {
			unitName = "EA"
		}
		unitID, ok := units[unitName]
		if !ok {
			unitID = int64(len(units) + 1)
			units[unitName] = unitID
			if err = s.exec(ctx, tx, `INSERT INTO part_unit_names (id, unit) VALUES (?, ?)`, unitID, unitName); err != nil {
				return fmt.Errorf("insert unit name: %w", err)
			}
			if err = s.exec(ctx, tx, `INSERT INTO part_units (id, unit_name_id, unit_qty) VALUES (?, ?, ?)`, unitID, unitID, 1.0); err != nil {
				return fmt.Errorf("insert unit: %w", err)
			}
		}

		id := p.ID
		if id == 0 {
			id = int64(i + 1)
		}
		created := p.CreatedAt
		if created.IsZero() {
			created = time.Now().UTC()
		}
		if err = s.exec(ctx, tx, `INSERT INTO parts (id, part_no, description, classification_id, unit_id, stock_count, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			id, p.PartNo, p.Description, classID, unitID, p.StockCount, created); err != nil {
			return fmt.Errorf("insert part %s: %w", p.PartNo, err)
		}

		if !p.HasModel() {
			continue
		}
		modelID, ok := models[p.ModelName()]
		if !ok {
			modelID = int64(len(models) + 1)
			models[p.ModelName()] = modelID
			if err = s.exec(ctx, tx, `INSERT INTO models (id, model) VALUES (?, ?)`, modelID, p.ModelName()); err != nil {
				return fmt.Errorf("insert model: %w", err)
			}
		}
		if err = s.exec(ctx, tx, `INSERT INTO model_parts (model_id, part_id) VALUES (?, ?)`, modelID, id); err != nil {
			return fmt.Errorf("link part %s: %w", p.PartNo, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit seed: %w", err)
	}
	s.logger.Info("seeded parts",
		zap.Int("parts", len(parts)),
		zap.Int("classifications", len(classes)),
		zap.Int("models", len(models)))
	return nil
}

func (s *Store) exec(ctx context.Context, tx *sql.Tx, query string, args ...any) error {
	_, err := tx.ExecContext(ctx, s.rebind(query), args...)
	return err
}

var (
	demoModels  = []string{"A320", "B737", "ATR72", "E190"}
	demoClasses = []struct {
		name    string
		rotable *bool
	}{
		{"Rotable", model.Ptr(true)},
		{"Repairable", model.Ptr(true)},
		{"Consumable", model.Ptr(false)},
		{"Expendable", model.Ptr(false)},
		{"Tooling", nil},
	}
	demoUnits = []string{"EA", "KIT", "L", "M", "SET"}
	demoNouns = []string{
		"Hydraulic pump", "Fuel valve", "O-ring kit", "Brake assembly", "Starter generator",
		"Cabin filter", "Landing light", "Actuator", "Seal", "Bearing", "Gasket", "Sensor",
	}
)

// DemoParts generates n deterministic parts for the demo database. Roughly one
// part in five has no model.
func DemoParts(n int) []model.Part {
	base := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	parts := make([]model.Part, 0, n)
	for i := 0; i < n; i++ {
		class := demoClasses[i%len(demoClasses)]
		p := model.Part{
			ID:             int64(i + 1),
			PartNo:         fmt.Sprintf("PN-%05d", 1000+i*7),
			Description:    fmt.Sprintf("%s %d", demoNouns[i%len(demoNouns)], i/len(demoNouns)+1),
			Classification: class.name,
			IsRotable:      class.rotable,
			UnitOfMeasure:  model.Ptr(demoUnits[(i/3)%len(demoUnits)]),
			StockCount:     (i * 37) % 120,
			CreatedAt:      base.Add(time.Duration(i) * 6 * time.Hour),
		}
		if i%5 != 4 {
			p.Model = model.Ptr(demoModels[(i/2)%len(demoModels)])
		}
		parts = append(parts, p)
	}
	sort.SliceStable(parts, func(a, b int) bool { return parts[a].PartNo < parts[b].PartNo })
	return parts
}
