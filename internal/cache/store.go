package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	_ "modernc.org/sqlite" // Pure Go SQLite driver, registers as "sqlite".
)

// ErrNotFound is returned when a plant id has no cached row.
var ErrNotFound = errors.New("cache: plant not found")

const walJournalSizeLimit = 67108864 // 64 MiB WAL journal size limit

// SQLiteStore is the durable local cache of enriched garden rows, backed by
// an embedded SQLite database in WAL mode. Reads run concurrently; writes
// serialize through a single mutex so a full replace is atomic with respect
// to every other writer. Use ":memory:" for tests.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger

	// Serializes all writes. SQLite allows one writer anyway; taking the
	// lock in Go keeps replace-vs-patch ordering deterministic.
	writeMu sync.Mutex

	hub subscriberHub
}

// NewStore opens the cache database at dbPath, applying migrations.
func NewStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("opening garden cache", slog.String("path", dbPath))

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("cache: open sqlite: %w", err)
	}

	// In-memory databases vanish per-connection; a pool of one keeps every
	// statement on the same database. Also required for ":memory:" tests.
	db.SetMaxOpenConns(1)

	if err := setPragmas(context.Background(), db); err != nil {
		db.Close()
		return nil, err
	}

	if err := runMigrations(context.Background(), db, logger); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db, logger: logger}, nil
}

func setPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = FULL",
		"PRAGMA foreign_keys = ON",
		fmt.Sprintf("PRAGMA journal_size_limit = %d", walJournalSizeLimit),
	}

	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("cache: set pragma %q: %w", p, err)
		}
	}

	return nil
}

// Close closes the database and drops all subscribers.
func (s *SQLiteStore) Close() error {
	s.hub.closeAll()

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("cache: closing database: %w", err)
	}

	return nil
}

const plantColumns = `id, species_name, custom_name, image_url, last_watered,
	last_sensor_seen, soil_moisture, temperature, current_air_humidity,
	min_air_humidity, max_air_humidity, connected_sensor_id,
	notifications_enabled, health_status, fact, toxicity, growth_habit,
	soil_type, botanical_type, lifecycle, fruit_info, uses, max_height,
	min_temp, max_temp, min_soil_humidity, max_soil_humidity,
	water_interval, light, care_difficulty`

// All returns every cached plant, ordered by display name then id so the
// listing is stable across syncs.
func (s *SQLiteStore) All(ctx context.Context) ([]Plant, error) {
	query := "SELECT " + plantColumns + " FROM plants ORDER BY custom_name COLLATE NOCASE, id"

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("cache: listing plants: %w", err)
	}
	defer rows.Close()

	var plants []Plant

	for rows.Next() {
		p, err := scanPlant(rows)
		if err != nil {
			return nil, err
		}

		plants = append(plants, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("cache: iterating plants: %w", err)
	}

	return plants, nil
}

// Get returns one cached plant by id.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Plant, error) {
	query := "SELECT " + plantColumns + " FROM plants WHERE id = ?"

	p, err := scanPlant(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}

	return p, err
}

// ReplaceAll atomically swaps the entire cache contents for the given set.
// Delete-all plus insert-all in one transaction: no reader ever observes a
// partially applied sync, and rows absent from the new set disappear.
func (s *SQLiteStore) ReplaceAll(ctx context.Context, plants []Plant) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("cache: beginning replace: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, "DELETE FROM plants"); err != nil {
		return fmt.Errorf("cache: clearing plants: %w", err)
	}

	for i := range plants {
		if err := insertPlant(ctx, tx, &plants[i]); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("cache: committing replace: %w", err)
	}

	s.logger.Debug("cache replaced", slog.Int("plants", len(plants)))
	s.hub.notify()

	return nil
}

// Insert adds a single plant row. Used for identify results between syncs.
func (s *SQLiteStore) Insert(ctx context.Context, p *Plant) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := insertPlant(ctx, s.db, p); err != nil {
		return err
	}

	s.hub.notify()

	return nil
}

// ApplyPatch updates the named fields of one cached row in place.
func (s *SQLiteStore) ApplyPatch(ctx context.Context, id string, patch Patch) error {
	if patch.IsZero() {
		return nil
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var (
		sets []string
		args []any
	)

	if patch.CustomName != nil {
		sets = append(sets, "custom_name = ?")
		args = append(args, *patch.CustomName)
	}

	if patch.LastWatered != nil {
		sets = append(sets, "last_watered = ?")
		args = append(args, *patch.LastWatered)
	}

	if patch.NotificationsEnabled != nil {
		sets = append(sets, "notifications_enabled = ?")
		args = append(args, boolToInt(*patch.NotificationsEnabled))
	}

	switch {
	case patch.ClearSensor:
		sets = append(sets, "connected_sensor_id = ''", "soil_moisture = NULL",
			"temperature = NULL", "current_air_humidity = NULL", "last_sensor_seen = 0")
	case patch.SensorID != nil:
		sets = append(sets, "connected_sensor_id = ?")
		args = append(args, *patch.SensorID)
	}

	args = append(args, id)

	res, err := s.db.ExecContext(ctx,
		"UPDATE plants SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("cache: patching plant %s: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("cache: patch rows affected: %w", err)
	}

	if n == 0 {
		return ErrNotFound
	}

	s.hub.notify()

	return nil
}

// Delete removes one cached row. Deleting an absent row is not an error.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if _, err := s.db.ExecContext(ctx, "DELETE FROM plants WHERE id = ?", id); err != nil {
		return fmt.Errorf("cache: deleting plant %s: %w", id, err)
	}

	s.hub.notify()

	return nil
}

// Clear empties the cache. Used on logout and account deletion.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if _, err := s.db.ExecContext(ctx, "DELETE FROM plants"); err != nil {
		return fmt.Errorf("cache: clearing plants: %w", err)
	}

	s.hub.notify()

	return nil
}

// execer covers *sql.DB and *sql.Tx for insertPlant.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertPlant(ctx context.Context, db execer, p *Plant) error {
	uses, err := json.Marshal(p.Uses)
	if err != nil {
		return fmt.Errorf("cache: encoding uses for plant %s: %w", p.ID, err)
	}

	_, err = db.ExecContext(ctx, `INSERT INTO plants (`+plantColumns+`)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		p.ID, p.SpeciesName, p.CustomName, p.ImageURL, p.LastWatered,
		p.LastSensorSeen, p.SoilMoisture, p.Temperature, p.CurrentAirHumidity,
		p.MinAirHumidity, p.MaxAirHumidity, p.ConnectedSensorID,
		boolToInt(p.NotificationsEnabled), p.HealthStatus, p.Fact, p.Toxicity,
		p.GrowthHabit, p.SoilType, p.BotanicalType, p.Lifecycle, p.FruitInfo,
		string(uses), p.MaxHeight, p.MinTemp, p.MaxTemp, p.MinSoilHumidity,
		p.MaxSoilHumidity, p.WaterInterval, p.Light, p.CareDifficulty,
	)
	if err != nil {
		return fmt.Errorf("cache: inserting plant %s: %w", p.ID, err)
	}

	return nil
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlant(row rowScanner) (*Plant, error) {
	var (
		p      Plant
		uses   string
		notify int
	)

	err := row.Scan(
		&p.ID, &p.SpeciesName, &p.CustomName, &p.ImageURL, &p.LastWatered,
		&p.LastSensorSeen, &p.SoilMoisture, &p.Temperature, &p.CurrentAirHumidity,
		&p.MinAirHumidity, &p.MaxAirHumidity, &p.ConnectedSensorID,
		&notify, &p.HealthStatus, &p.Fact, &p.Toxicity,
		&p.GrowthHabit, &p.SoilType, &p.BotanicalType, &p.Lifecycle, &p.FruitInfo,
		&uses, &p.MaxHeight, &p.MinTemp, &p.MaxTemp, &p.MinSoilHumidity,
		&p.MaxSoilHumidity, &p.WaterInterval, &p.Light, &p.CareDifficulty,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}

		return nil, fmt.Errorf("cache: scanning plant: %w", err)
	}

	p.NotificationsEnabled = notify != 0

	if err := json.Unmarshal([]byte(uses), &p.Uses); err != nil {
		return nil, fmt.Errorf("cache: decoding uses for plant %s: %w", p.ID, err)
	}

	return &p, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}

	return 0
}
