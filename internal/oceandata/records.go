package oceandata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"
)

var (
	ErrInvalidRegion = errors.New("invalid region")
	ErrInvalidRecord = errors.New("invalid record")
)

// Regions maps the stored region code to its display name.
var Regions = map[string]string{
	"pacific":  "Pacific Ocean",
	"atlantic": "Atlantic Ocean",
	"indian":   "Indian Ocean",
	"arctic":   "Arctic Ocean",
	"southern": "Southern Ocean",
}

// RegionCodes lists Regions in display order.
var RegionCodes = []string{"pacific", "atlantic", "indian", "arctic", "southern"}

// Units used for generated records, keyed by parameter.
var parameterUnits = map[string]string{
	"temperature":      "°C",
	"salinity":         "PSU",
	"ph":               "pH",
	"dissolved_oxygen": "mg/L",
	"chlorophyll":      "mg/m³",
	"turbidity":        "NTU",
}

// Record is a single ocean parameter reading owned by a user.
type Record struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    int64     `gorm:"not null;index" json:"user_id"`
	Region    string    `gorm:"size:20;not null" json:"region"`
	Parameter string    `gorm:"size:50;not null" json:"parameter"`
	Value     float64   `gorm:"not null" json:"value"`
	Unit      string    `gorm:"size:20;not null" json:"unit"`
	Timestamp time.Time `gorm:"not null;index" json:"timestamp"`
	Latitude  *float64  `json:"latitude,omitempty"`
	Longitude *float64  `json:"longitude,omitempty"`
	Depth     *float64  `json:"depth,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (Record) TableName() string { return "ocean_data" }

// RegionName returns the display name of the record's region.
func (r Record) RegionName() string {
	return Regions[r.Region]
}

func (r *Record) Validate() error {
	r.Region = strings.ToLower(strings.TrimSpace(r.Region))
	if _, ok := Regions[r.Region]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidRegion, r.Region)
	}
	if strings.TrimSpace(r.Parameter) == "" || strings.TrimSpace(r.Unit) == "" {
		return fmt.Errorf("%w: parameter and unit are required", ErrInvalidRecord)
	}
	if r.Timestamp.IsZero() {
		return fmt.Errorf("%w: timestamp is required", ErrInvalidRecord)
	}
	return nil
}

type Repository struct {
	db *gorm.DB
}

// NewRepository opens GORM on an existing SQLite pool and migrates the ocean_data table.
func NewRepository(conn *sql.DB) (*Repository, error) {
	gdb, err := gorm.Open(sqlite.New(sqlite.Config{Conn: conn}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm: %w", err)
	}
	if err := gdb.Use(tracing.NewPlugin()); err != nil {
		return nil, fmt.Errorf("failed to install gorm tracing: %w", err)
	}
	if err := gdb.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("failed to migrate ocean_data: %w", err)
	}
	return &Repository{db: gdb}, nil
}

func (r *Repository) Create(ctx context.Context, rec *Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("failed to create record: %w", err)
	}
	return nil
}

// ListByUser returns the user's records, newest reading first.
func (r *Repository) ListByUser(ctx context.Context, userID int64, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 100
	}
	out := make([]Record, 0)
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("timestamp DESC").Order("id DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	return out, nil
}

// FakeRecord produces a plausible reading for userID dated within the year before now.
func FakeRecord(faker *gofakeit.Faker, userID int64, now time.Time) Record {
	param := faker.RandomString(chartParameters)
	low, high := chartRange(param)
	lat := round(faker.Latitude(), 4)
	lon := round(faker.Longitude(), 4)
	depth := round(faker.Float64Range(0, 500), 1)
	return Record{
		UserID:    userID,
		Region:    faker.RandomString(RegionCodes),
		Parameter: param,
		Value:     round(faker.Float64Range(low, high), 2),
		Unit:      parameterUnits[param],
		Timestamp: now.Add(-time.Duration(faker.Number(0, 365*24)) * time.Hour).UTC(),
		Latitude:  &lat,
		Longitude: &lon,
		Depth:     &depth,
	}
}
