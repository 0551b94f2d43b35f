//go:build !js && !wasm
// +build !js,!wasm

package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	customlogger "github.com/himanishpuri/omrhythm/pkg/logger"
	"github.com/himanishpuri/omrhythm/pkg/models"
	"github.com/himanishpuri/omrhythm/pkg/utils"
)

const DefaultDBFile = "omrhythm.sqlite3"
const errDBClientNil = "db client is nil"

// ErrNotFound is returned when no analysis has the requested id.
var ErrNotFound = errors.New("analysis not found")

type DBClient struct {
	DB *gorm.DB
	db *sql.DB
}

// ListOptions filters and pages ListAnalyses. A zero Limit means no limit.
type ListOptions struct {
	Limit        int
	Offset       int
	AbnormalOnly bool
	Name         string
}

func NewDBClient() (*DBClient, error) {
	dbPath := os.Getenv("OMRHYTHM_DB_PATH")
	if dbPath == "" {
		dbPath = DefaultDBFile
	}
	return NewDBClientWithPath(dbPath)
}

func NewDBClientWithPath(dbPath string) (*DBClient, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := utils.MakeDir(dir); err != nil {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	db, err := gorm.Open(sqlite.Open(dbPath+"?_foreign_keys=on"), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&Analysis{}, &Stack{}, &Measure{}, &Slot{}, &Voice{}, &Chord{}, &Tuplet{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &DBClient{DB: db, db: sqlDB}, nil
}

func (c *DBClient) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// SaveAnalysis stores the analysis with all its measures in one transaction.
// An empty ID is filled with a new UUID, a zero CreatedAt with the current time.
func (c *DBClient) SaveAnalysis(a *models.Analysis) (string, error) {
	if c == nil || c.DB == nil {
		return "", errors.New(errDBClientNil)
	}
	if a.ID == "" {
		a.ID = utils.GenerateUUID()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	rec := toRecord(a)
	if err := c.DB.Create(rec).Error; err != nil {
		return "", fmt.Errorf("creating analysis: %w", err)
	}
	return rec.ID, nil
}

func (c *DBClient) GetAnalysisByID(id string) (*models.Analysis, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}

	var rec Analysis
	err := c.DB.
		Preload("Stacks", orderBy("stack_index")).
		Preload("Measures", orderBy("stack, part")).
		Preload("Measures.Slots", orderBy("slot_id")).
		Preload("Measures.Voices", orderBy("voice_id")).
		Preload("Measures.Chords", orderBy("chord_id")).
		Preload("Measures.Tuplets", orderBy("tuplet_id")).
		First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying analysis: %w", err)
	}
	return rec.toModel(), nil
}

func orderBy(columns string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB { return db.Order(columns) }
}

// ListAnalyses returns summaries, newest first.
func (c *DBClient) ListAnalyses(opts ListOptions) ([]models.AnalysisSummary, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}

	q := c.DB.Model(&Analysis{}).Order("created_at DESC")
	if opts.AbnormalOnly {
		q = q.Where("abnormal = ?", true)
	}
	if opts.Name != "" {
		q = q.Where("name LIKE ?", "%"+opts.Name+"%")
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}

	var rows []Analysis
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing analyses: %w", err)
	}
	out := make([]models.AnalysisSummary, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].summary())
	}
	return out, nil
}

// CountAnalyses returns the number of stored analyses and of abnormal ones.
func (c *DBClient) CountAnalyses() (total, abnormal int64, err error) {
	if c == nil || c.DB == nil {
		return 0, 0, errors.New(errDBClientNil)
	}
	if err := c.DB.Model(&Analysis{}).Count(&total).Error; err != nil {
		return 0, 0, fmt.Errorf("counting analyses: %w", err)
	}
	if err := c.DB.Model(&Analysis{}).Where("abnormal = ?", true).Count(&abnormal).Error; err != nil {
		return 0, 0, fmt.Errorf("counting abnormal analyses: %w", err)
	}
	return total, abnormal, nil
}

func (c *DBClient) DeleteAnalysisByID(id string) error {
	if c == nil || c.DB == nil {
		return errors.New(errDBClientNil)
	}
	return c.DB.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&Analysis{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}

		var measureIDs []uint
		if err := tx.Model(&Measure{}).Where("analysis_id = ?", id).Pluck("id", &measureIDs).Error; err != nil {
			return err
		}
		if len(measureIDs) > 0 {
			for _, child := range []any{&Slot{}, &Voice{}, &Chord{}, &Tuplet{}} {
				if err := tx.Where("measure_id IN ?", measureIDs).Delete(child).Error; err != nil {
					return err
				}
			}
		}
		if err := tx.Where("analysis_id = ?", id).Delete(&Measure{}).Error; err != nil {
			return err
		}
		if err := tx.Where("analysis_id = ?", id).Delete(&Stack{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&Analysis{}).Error
	})
}

// MustNewDBClient opens the default database or panics.
func MustNewDBClient() *DBClient {
	cli, err := NewDBClient()
	if err != nil {
		customlogger.GetLogger().Error("failed to open DB: %v", err)
		panic(err)
	}
	return cli
}
