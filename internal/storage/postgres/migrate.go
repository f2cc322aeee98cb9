package postgres

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/azhengyongqin/eval-hub/internal/repository"
)

// AutoMigrate 通过 GORM 建表/加列。只做增量迁移，不删除已有列。
func AutoMigrate(dsn string) error {
	if err := validatePostgresURI(dsn); err != nil {
		return fmt.Errorf("invalid POSTGRES_DSN: %w", err)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	if err := db.AutoMigrate(repository.AllModels()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	// GORM 连接只为迁移服务，用完即关
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql.DB: %w", err)
	}
	return sqlDB.Close()
}
