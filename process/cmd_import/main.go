package main

import (
	"encoding/csv"
	"errors"
	"flag"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"dompet/models"
)

// Global DB handle for helper funcs
var db *gorm.DB

// global flags (parsed in main)
var (
	verbose bool
	dryRun  bool
)

func mustInitDBFromEnv() *gorm.DB {
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatalf("DB_DSN must be set in environment to run this tool")
	}
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	return gdb
}

// Main: scans a drop folder for expense CSV files (date,amount,tag,description
// per row), validates every row against the tag table and inserts the valid
// ones, optional watch mode.
func main() {
	dirFlag := flag.String("dir", "inbox", "directory to scan for expense CSV files")
	username := flag.String("username", "admin", "username to assign imported expenses to")
	watch := flag.Bool("watch", false, "Watch directory for new files")
	workers := flag.Int("workers", 0, "Worker pool size (default NumCPU)")
	flag.BoolVar(&verbose, "verbose", false, "Verbose per-row logging")
	flag.BoolVar(&dryRun, "dry-run", false, "Parse and validate only; no DB writes")
	flag.Parse()

	db = mustInitDBFromEnv()

	var user models.User
	if err := db.Where("username = ?", *username).First(&user).Error; err != nil {
		log.Fatalf("user %s not found: %v", *username, err)
	}

	w := *workers
	if w <= 0 {
		w = runtime.NumCPU()
	}

	initial := listCSVFiles(*dirFlag)
	log.Printf("Found %d CSV file(s) in %s", len(initial), *dirFlag)

	if *watch {
		if err := watchDirectory(*dirFlag, user, initial, w); err != nil {
			log.Fatalf("watch failed: %v", err)
		}
		return
	}
	runWorkerPool(*dirFlag, user, initial, w)
}

func listCSVFiles(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !isImportable(e.Name()) {
			continue
		}
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out
}

func isImportable(name string) bool {
	// processed files are renamed to *.done; never pick them up again
	if strings.HasSuffix(name, ".done") {
		return false
	}
	return strings.ToLower(filepath.Ext(name)) == ".csv"
}

func watchDirectory(dir string, user models.User, initial []string, workers int) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		return err
	}
	log.Printf("Watching %s (debounced) ...", dir)

	fileCh := make(chan string, 256)
	go func() {
		// simple debounce map of pending files
		pending := map[string]time.Time{}
		ticker := time.NewTicker(250 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					close(fileCh)
					return
				}
				if ev.Op&fsnotify.Create == fsnotify.Create {
					name := filepath.Base(ev.Name)
					if !isImportable(name) {
						continue
					}
					pending[name] = time.Now()
				}
			case <-ticker.C:
				now := time.Now()
				for name, t := range pending {
					if now.Sub(t) > 300*time.Millisecond { // stable
						fileCh <- name
						delete(pending, name)
					}
				}
			case err, ok := <-w.Errors:
				if !ok {
					close(fileCh)
					return
				}
				log.Printf("watch error: %v", err)
			}
		}
	}()

	go runWorkerPool(dir, user, initial, workers, fileCh)
	// block forever (Ctrl+C to exit)
	select {}
}

// worker pool orchestrator
func runWorkerPool(dir string, user models.User, initial []string, workers int, extraCh ...<-chan string) {
	fileCh := make(chan string, 1024)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for name := range fileCh {
				importFile(dir, name, user)
			}
		}()
	}
	for _, name := range initial {
		fileCh <- name
	}
	if len(extraCh) > 0 {
		for name := range extraCh[0] {
			fileCh <- name
		}
	}
	close(fileCh)
	wg.Wait()
}

// importFile reads one CSV file and inserts its valid rows. Rows are
// date,amount,tag,description; date and description may be empty. A row with
// an out-of-set tag or an amount that is not exact at 2 decimal places is
// rejected and logged, never defaulted.
func importFile(dir, name string, user models.User) {
	path := filepath.Join(dir, name)
	f, err := os.Open(path)
	if err != nil {
		log.Printf("%s: open failed: %v", name, err)
		return
	}
	defer f.Close()

	rd := csv.NewReader(f)
	rd.FieldsPerRecord = -1
	imported, rejected := 0, 0
	for line := 1; ; line++ {
		rec, err := rd.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Printf("%s:%d: csv error: %v", name, line, err)
			rejected++
			continue
		}
		exp, err := parseRow(rec, user.ID)
		if err != nil {
			log.Printf("%s:%d: rejected: %v", name, line, err)
			rejected++
			continue
		}
		if dryRun {
			imported++
			continue
		}
		if err := db.Create(exp).Error; err != nil {
			log.Printf("%s:%d: insert failed: %v", name, line, err)
			rejected++
			continue
		}
		imported++
		if verbose {
			log.Printf("%s:%d: imported expense id=%d tag=%s amount=%s", name, line, exp.ID, exp.Tag, exp.Amount)
		}
	}
	log.Printf("%s: %d imported, %d rejected", name, imported, rejected)
	if !dryRun {
		if err := os.Rename(path, path+".done"); err != nil {
			log.Printf("%s: rename failed: %v", name, err)
		}
	}
}

func parseRow(rec []string, userID uint) (*models.Expense, error) {
	if len(rec) < 3 {
		return nil, errTooFewFields
	}
	exp := &models.Expense{UserID: userID, Tag: models.Tag(strings.TrimSpace(rec[2]))}
	if d := strings.TrimSpace(rec[0]); d != "" {
		t, err := time.Parse("2006-01-02", d)
		if err != nil {
			return nil, err
		}
		exp.SpentAt = t
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(rec[1]))
	if err != nil {
		return nil, err
	}
	exp.Amount = amount
	if len(rec) > 3 {
		exp.Description = strings.TrimSpace(rec[3])
	}
	if err := exp.Validate(); err != nil {
		return nil, err
	}
	return exp, nil
}

var errTooFewFields = errors.New("expected at least date,amount,tag")
