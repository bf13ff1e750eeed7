// Package audit grava cada troca com o modelo em SQLite para diagnóstico.
// O log é só de escrita e consulta: sessões nunca são restauradas a partir dele.
package audit

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Exchange é uma chamada ao modelo, bem-sucedida ou não.
type Exchange struct {
	SessionID string
	Operation string
	Prompt    string
	Response  string
	Error     string
	Latency   time.Duration
	CreatedAt time.Time
}

// Recorder é o que o serviço de chat usa para registrar as trocas.
type Recorder interface {
	Record(ctx context.Context, ex Exchange) error
}

// Nop descarta tudo; usado quando AUDIT_DB_PATH está vazio.
type Nop struct{}

func (Nop) Record(context.Context, Exchange) error { return nil }

type exchangeModel struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	SessionID string `gorm:"column:session_id;index"`
	Operation string `gorm:"column:operation;index"`
	Prompt    string `gorm:"column:prompt"`
	Response  string `gorm:"column:response"`
	Error     string `gorm:"column:error"`
	LatencyMs int64  `gorm:"column:latency_ms"`
	CreatedAt time.Time
}

func (exchangeModel) TableName() string { return "exchanges" }

// Store implementa Recorder sobre gorm + sqlite.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

// NewStore abre (ou cria) o banco em path e migra a tabela exchanges.
func NewStore(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("audit: db path must not be empty")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("audit: create dir: %w", err)
		}
	}
	dsn := path
	if path != ":memory:" {
		dsn = fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path)
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("audit: open %s: %w", path, err)
	}
	if path == ":memory:" {
		// cada conexão nova de :memory: é um banco vazio
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("audit: sql db: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}
	if err := db.AutoMigrate(&exchangeModel{}); err != nil {
		return nil, fmt.Errorf("audit: migrate: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Record(ctx context.Context, ex Exchange) error {
	created := ex.CreatedAt
	if created.IsZero() {
		created = s.now()
	}
	row := exchangeModel{
		SessionID: ex.SessionID,
		Operation: ex.Operation,
		Prompt:    ex.Prompt,
		Response:  ex.Response,
		Error:     ex.Error,
		LatencyMs: ex.Latency.Milliseconds(),
		CreatedAt: created.UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("audit: insert exchange: %w", err)
	}
	return nil
}

// list retorna as trocas da sessão em ordem de gravação. limit <= 0 traz todas;
// sessionID vazio traz todas as sessões.
func (s *Store) list(ctx context.Context, sessionID string, limit int) ([]Exchange, error) {
	q := s.db.WithContext(ctx).Model(&exchangeModel{}).Order("id ASC")
	if sessionID != "" {
		q = q.Where("session_id = ?", sessionID)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []exchangeModel
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("audit: list exchanges: %w", err)
	}
	out := make([]Exchange, 0, len(rows))
	for _, r := range rows {
		out = append(out, Exchange{
			SessionID: r.SessionID,
			Operation: r.Operation,
			Prompt:    r.Prompt,
			Response:  r.Response,
			Error:     r.Error,
			Latency:   time.Duration(r.LatencyMs) * time.Millisecond,
			CreatedAt: r.CreatedAt,
		})
	}
	return out, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
