package report

import (
	"fmt"
	"log"
	"os"
	"time"

	"dompet/models"

	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func mustDBFromEnv() *gorm.DB {
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN not set in env")
	}
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	return gdb
}

// RunReport prints a month-bounded per-tag expense breakdown for username
// (month in YYYY-MM) and optionally lists the matching rows.
func RunReport(username, month string, list bool) {
	gdb := mustDBFromEnv()

	var user models.User
	if err := gdb.Where("username = ?", username).First(&user).Error; err != nil {
		log.Fatalf("user not found: %v", err)
	}

	t, err := time.Parse("2006-01", month)
	if err != nil {
		log.Fatalf("invalid month format, expected YYYY-MM: %v", err)
	}
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	type row struct {
		Tag   string
		Total string
		Cnt   int64
	}
	var rows []row
	err = gdb.Raw(`SELECT tag, COALESCE(SUM(amount),0)::text AS total, COUNT(*) AS cnt
		FROM expenses WHERE user_id = ? AND spent_at >= ? AND spent_at < ?
		GROUP BY tag ORDER BY tag`, user.ID, start, end).Scan(&rows).Error
	if err != nil {
		log.Fatalf("query failed: %v", err)
	}

	grand := decimal.Zero
	fmt.Printf("Expenses for %s in %s\n", username, month)
	for _, r := range rows {
		label := r.Tag
		if l, err := models.Tags.LabelFor(models.Tag(r.Tag)); err == nil {
			label = l
		}
		total, err := decimal.NewFromString(r.Total)
		if err != nil {
			log.Fatalf("bad total for tag %s: %v", r.Tag, err)
		}
		grand = grand.Add(total)
		fmt.Printf("  %-16s %10s  (%d rows)\n", label, total.StringFixed(2), r.Cnt)
	}
	fmt.Printf("  %-16s %10s\n", "TOTAL", grand.StringFixed(2))

	if list {
		var items []models.Expense
		if err := gdb.Where("user_id = ? AND spent_at >= ? AND spent_at < ?", user.ID, start, end).
			Order("spent_at").Find(&items).Error; err != nil {
			log.Fatalf("list failed: %v", err)
		}
		for _, e := range items {
			fmt.Printf("  %s  %-2s  %10s  %s\n", e.SpentAt.Format("2006-01-02"), e.Tag, e.Amount.StringFixed(2), e.Description)
		}
	}
}
