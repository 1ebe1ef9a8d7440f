// Package inbox turns receipt photos dropped into a watched directory into
// expenses. Files live under <root>/<username>/ and move to
// <root>/processed/<username>/ once handled.
package inbox

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"worktrack/models"
	"worktrack/pkg/events"
	"worktrack/pkg/logx"
	"worktrack/pkg/receipt"
)

// ProcessedDir is the directory under the inbox root that receives handled files.
const ProcessedDir = "processed"

// ReceiptCategory is the category given to expenses created from the inbox.
const ReceiptCategory = "Receipts"

var extMime = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// Options configures a Processor.
type Options struct {
	Root          string
	Workers       int
	MinConfidence float64
}

// Outcome describes what happened to one file.
type Outcome struct {
	Receipt models.Receipt
	Expense *models.Expense
	Moved   string
}

// Processor scans and watches the inbox.
type Processor struct {
	db        *gorm.DB
	extractor *receipt.Extractor
	publisher events.Publisher
	log       *logx.Logger
	opts      Options
	move      func(src, dst string) error

	mu    sync.RWMutex
	users map[string]uint
}

func New(db *gorm.DB, ex *receipt.Extractor, pub events.Publisher, log *logx.Logger, opts Options) *Processor {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if pub == nil {
		pub = events.Nop{}
	}
	return &Processor{
		db:        db,
		extractor: ex,
		publisher: pub,
		log:       log.WithComponent(logx.ComponentInbox),
		opts:      opts,
		move:      moveToProcessed,
		users:     make(map[string]uint),
	}
}

type job struct {
	username string
	name     string
}

// Scan processes every supported file already present in the inbox and
// returns once all of them have been handled.
func (p *Processor) Scan(ctx context.Context) error {
	jobs, err := p.pending()
	if err != nil {
		return err
	}
	p.log.Info("Scanning inbox", "root", p.opts.Root, "files", len(jobs), "workers", p.opts.Workers)
	ch := make(chan job)
	go func() {
		defer close(ch)
		for _, j := range jobs {
			select {
			case ch <- j:
			case <-ctx.Done():
				return
			}
		}
	}()
	p.runWorkers(ctx, ch)
	return ctx.Err()
}

// pending lists inbox files in a stable order.
func (p *Processor) pending() ([]job, error) {
	entries, err := os.ReadDir(p.opts.Root)
	if err != nil {
		return nil, fmt.Errorf("read inbox: %w", err)
	}
	var out []job
	for _, e := range entries {
		if !e.IsDir() || e.Name() == ProcessedDir {
			continue
		}
		for _, name := range listImageFiles(filepath.Join(p.opts.Root, e.Name())) {
			out = append(out, job{username: e.Name(), name: name})
		}
	}
	return out, nil
}

func (p *Processor) runWorkers(ctx context.Context, jobs <-chan job) {
	var wg sync.WaitGroup
	for i := 0; i < p.opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				if _, err := p.Process(ctx, j.username, j.name); err != nil {
					p.log.Warn("Inbox file not processed", logx.FieldFile, j.name, "username", j.username, logx.FieldError, err)
				}
			}
		}()
	}
	wg.Wait()
}

// Process handles one file: OCR, receipt row, expense when the amount is
// usable, then the move to the processed directory.
func (p *Processor) Process(ctx context.Context, username, name string) (Outcome, error) {
	src := filepath.Join(p.opts.Root, username, name)
	if _, err := os.Stat(src); err != nil {
		return Outcome{}, err
	}
	userID, err := p.userID(ctx, username)
	if err != nil {
		return Outcome{}, err
	}

	dst, err := uniquePath(filepath.Join(p.opts.Root, ProcessedDir, username), name)
	if err != nil {
		return Outcome{}, err
	}

	started := time.Now()
	res, exErr := p.extractor.Extract(src)
	rec := models.Receipt{
		UserID:      userID,
		FileName:    name,
		StorePath:   filepath.ToSlash(dst),
		ContentType: mimeFromExt(name),
	}
	receipt.Describe(&rec, res, exErr, p.opts.MinConfidence)
	p.log.Debug("Receipt OCR done", logx.FieldOperation, logx.OpOCR, logx.FieldFile, name,
		logx.FieldAmount, res.Amount, "confidence", res.Confidence, logx.FieldDuration, time.Since(started).Milliseconds())

	var exp *models.Expense
	err = p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if rec.DetectedAmount != nil {
			exp = &models.Expense{
				UserID:      userID,
				Category:    ReceiptCategory,
				Description: "Receipt " + name,
				Amount:      *rec.DetectedAmount,
				ExpenseDate: models.Today(),
				Type:        models.TypeExpense,
			}
			if err := tx.Create(exp).Error; err != nil {
				return err
			}
			rec.ExpenseID = &exp.ID
		}
		return tx.Create(&rec).Error
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("store receipt: %w", err)
	}

	if err := p.move(src, dst); err != nil {
		// a file left in the inbox is read again on the next scan
		if rbErr := p.forget(ctx, rec, exp); rbErr != nil {
			p.log.Error("Failed to remove rows of unmoved file", logx.FieldFile, name, logx.FieldError, rbErr)
		}
		return Outcome{}, fmt.Errorf("move processed file: %w", err)
	}

	if exp != nil {
		events.Emit(ctx, p.publisher, p.log, events.ExpenseCreated, userID, map[string]any{
			"expense_id": exp.ID, "amount": exp.Amount, "category": exp.Category, "type": exp.Type,
		})
		p.log.Info("Expense created from receipt", logx.FieldFile, name, logx.FieldUserID, userID, logx.FieldAmount, exp.Amount)
	} else {
		p.log.Info("Receipt kept without amount", logx.FieldFile, name, logx.FieldUserID, userID, "reason", rec.FailedReason)
	}
	events.Emit(ctx, p.publisher, p.log, events.ReceiptProcessed, userID, map[string]any{
		"receipt_id": rec.ID, "expense_id": rec.ExpenseID, "detected_amount": rec.DetectedAmount, "failed": rec.Failed,
	})
	return Outcome{Receipt: rec, Expense: exp, Moved: dst}, nil
}

// forget deletes the rows stored for a file that could not be moved.
func (p *Processor) forget(ctx context.Context, rec models.Receipt, exp *models.Expense) error {
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.Receipt{}, rec.ID).Error; err != nil {
			return err
		}
		if exp != nil {
			return tx.Delete(&models.Expense{}, exp.ID).Error
		}
		return nil
	})
}

// userID resolves a directory name to a user, caching hits.
func (p *Processor) userID(ctx context.Context, username string) (uint, error) {
	p.mu.RLock()
	id, ok := p.users[username]
	p.mu.RUnlock()
	if ok {
		return id, nil
	}
	var u models.User
	err := p.db.WithContext(ctx).Select("id").Where("username = ?", username).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, fmt.Errorf("unknown user %q", username)
	}
	if err != nil {
		return 0, fmt.Errorf("load user: %w", err)
	}
	p.mu.Lock()
	p.users[username] = u.ID
	p.mu.Unlock()
	return u.ID, nil
}

func listImageFiles(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !isSupportedExt(e.Name()) {
			continue
		}
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out
}

func isSupportedExt(name string) bool {
	// skip editor and OCR temp files
	if strings.HasPrefix(name, ".") || strings.Contains(name, ".ocr.") {
		return false
	}
	_, ok := extMime[strings.ToLower(filepath.Ext(name))]
	return ok
}

func mimeFromExt(name string) string {
	return extMime[strings.ToLower(filepath.Ext(name))]
}

// uniquePath returns dir/name, prefixed with a timestamp when that file
// already exists.
func uniquePath(dir, name string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	dst := filepath.Join(dir, name)
	if _, err := os.Stat(dst); errors.Is(err, os.ErrNotExist) {
		return dst, nil
	}
	return filepath.Join(dir, fmt.Sprintf("%d-%s", time.Now().UnixNano(), name)), nil
}
