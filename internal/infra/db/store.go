package db

import (
	"fmt"
	"log"

	"privaseal/internal/config"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type Store struct {
	DB *gorm.DB
}

func NewStore(cfg config.Config) (*Store, error) {
	if cfg.PostgresDSN == "" {
		log.Printf("POSTGRES_DSN not set; starting with in-memory stores only.")
		return &Store{DB: nil}, nil
	}

	gdb, err := gorm.Open(postgres.Open(cfg.PostgresDSN), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := migrate(gdb); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{DB: gdb}, nil
}

func migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&CredentialModel{},
		&IssuerKeyModel{},
		&RequestModel{},
		&RevocationModel{},
		&AuditEventModel{},
		&AuditSeqModel{},
	)
}
