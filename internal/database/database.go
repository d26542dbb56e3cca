package database

import (
	"log"

	"github.com/stanmart1/rest-empire-sub000/config"
	"github.com/stanmart1/rest-empire-sub000/internal/domain"
	"github.com/stanmart1/rest-empire-sub000/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(cfg.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Error), // Only log errors, not every SQL query
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	return db, nil
}

// AutoMigrate runs Gorm auto-migration for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Rank{},
		&models.Transaction{},
		&models.Bonus{},
		&models.DistributionAttempt{},
		&models.IntegrityFlag{},
		&models.SystemSetting{},
	)
}

// SeedAdmin creates the initial admin account if none exists.
func SeedAdmin(db *gorm.DB) {
	var count int64
	db.Model(&models.User{}).Where("role = ?", domain.RoleAdmin).Count(&count)
	if count > 0 {
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte("admin12345"), bcrypt.DefaultCost)
	if err != nil {
		return
	}
	admin := &models.User{
		Email:        "admin@rest-empire.local",
		Username:     "admin",
		PasswordHash: string(hash),
		Role:         domain.RoleAdmin,
	}
	if err := db.Create(admin).Error; err != nil {
		log.Printf("[seed] admin: %v", err)
		return
	}
	log.Printf("[seed] created admin account admin@rest-empire.local (change the password)")
}

// defaultRankTable is the 16-tier qualification table the admin UI edits.
// Caps follow the 50/30/20 split of the team requirement; one-time awards
// start at Sapphire. Amounts in cents.
func defaultRankTable() []models.Rank {
	type tier struct {
		name  string
		req   int64 // team turnover, whole currency units
		bonus int64
	}
	tiers := []tier{
		{"Amber", 5_000, 0},
		{"Jade", 20_000, 0},
		{"Pearl", 50_000, 0},
		{"Sapphire", 100_000, 1_000},
		{"Ruby", 250_000, 2_500},
		{"Emerald", 500_000, 5_000},
		{"Diamond", 1_000_000, 10_000},
		{"Blue Diamond", 2_500_000, 25_000},
		{"Green Diamond", 5_000_000, 50_000},
		{"Purple Diamond", 10_000_000, 100_000},
		{"Red Diamond", 25_000_000, 250_000},
		{"Black Diamond", 50_000_000, 500_000},
		{"Ultima Diamond", 100_000_000, 1_000_000},
		{"Double Ultima Diamond", 250_000_000, 2_500_000},
		{"Triple Ultima Diamond", 500_000_000, 5_000_000},
		{"Billion Diamond", 1_000_000_000, 10_000_000},
	}
	ranks := make([]models.Rank, 0, len(tiers))
	for i, t := range tiers {
		req := t.req * 100
		ranks = append(ranks, models.Rank{
			Name:              t.name,
			SortOrder:         i + 1,
			TeamTurnoverCents: req,
			FirstLegCapCents:  req / 2,
			SecondLegCapCents: req * 3 / 10,
			OtherLegsMinCents: req / 5,
			BonusCents:        t.bonus * 100,
		})
	}
	return ranks
}

// SeedRanks inserts the default tier table when the ranks table is empty.
func SeedRanks(db *gorm.DB) {
	var count int64
	db.Model(&models.Rank{}).Count(&count)
	if count > 0 {
		return
	}
	for _, r := range defaultRankTable() {
		if err := db.Create(&r).Error; err != nil {
			log.Printf("[seed] rank %s: %v", r.Name, err)
			return
		}
	}
	log.Printf("[seed] created %d rank tiers", len(defaultRankTable()))
}

// DefaultSettings are the compensation parameters seeded on first boot.
func DefaultSettings() map[string]string {
	return map[string]string{
		domain.SettingUnilevelPercentages: "10,6,5,4,3,3,2,2,2,2,1,1,1,1,1",
		domain.SettingInfinityEnabled:     "true",
		domain.SettingInfinityPercent:     "10",
		domain.SettingInfinityMinRank:     "Diamond",
		domain.SettingActivityWindowDays:  "30",
	}
}
