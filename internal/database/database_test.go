package database

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.RunMigrations(); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	return db
}

func TestDatabaseInitialization(t *testing.T) {
	tempDir := t.TempDir()
	dbPath := filepath.Join(tempDir, "nested", "test.db")

	db, err := OpenAndMigrate(dbPath, nil)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	version, err := db.GetVersion()
	if err != nil {
		t.Fatalf("Failed to get version: %v", err)
	}
	if version != LatestVersion() {
		t.Errorf("Expected version %d, got %d", LatestVersion(), version)
	}

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}

	// Running again is a no-op
	if err := db.RunMigrations(); err != nil {
		t.Fatalf("Second migration run failed: %v", err)
	}
}

func TestRollback(t *testing.T) {
	db := openTestDB(t)

	if err := db.RollbackTo(2); err != nil {
		t.Fatalf("RollbackTo: %v", err)
	}
	version, _ := db.GetVersion()
	if version != 2 {
		t.Errorf("Expected version 2 after rollback, got %d", version)
	}
	if _, err := db.CountScans(); err == nil {
		t.Error("scans table should be gone")
	}

	if err := db.RunMigrations(); err != nil {
		t.Fatalf("Re-migrate: %v", err)
	}
	if _, err := db.CountScans(); err != nil {
		t.Errorf("scans table missing after re-migrate: %v", err)
	}
}

func TestCollectionOperations(t *testing.T) {
	db := openTestDB(t)

	bolt := &CollectionCard{CardID: "bolt", Name: "Lightning Bolt", ManaCost: "{R}", TypeLine: "Instant", Price: 0.5}
	lotus := &CollectionCard{CardID: "lotus", Name: "Black Lotus", Price: 25000}

	qty, err := db.AddCollectionCard(bolt)
	if err != nil {
		t.Fatalf("Failed to add card: %v", err)
	}
	if qty != 1 {
		t.Errorf("Expected quantity 1, got %d", qty)
	}

	qty, _ = db.AddCollectionCard(bolt)
	if qty != 2 {
		t.Errorf("Expected quantity 2 after second add, got %d", qty)
	}
	if _, err := db.AddCollectionCard(lotus); err != nil {
		t.Fatalf("Failed to add lotus: %v", err)
	}

	got, err := db.GetCollectionCard("bolt")
	if err != nil {
		t.Fatalf("Failed to get card: %v", err)
	}
	if got.Quantity != 2 || got.ManaCost != "{R}" || got.DateAdded.IsZero() {
		t.Errorf("Unexpected card %+v", got)
	}
	if got.Value() != 1.0 {
		t.Errorf("Expected value 1.0, got %v", got.Value())
	}

	list, err := db.ListCollection()
	if err != nil {
		t.Fatalf("Failed to list: %v", err)
	}
	if len(list) != 2 || list[0].CardID != "bolt" || list[1].CardID != "lotus" {
		t.Errorf("Unexpected list order: %v", list)
	}

	totals, err := db.GetCollectionTotals()
	if err != nil {
		t.Fatalf("Failed to total: %v", err)
	}
	if totals.UniqueCards != 2 || totals.TotalCards != 3 || totals.TotalValue != 25001 {
		t.Errorf("Unexpected totals %+v", totals)
	}

	if err := db.RemoveCollectionCard("bolt"); err != nil {
		t.Fatalf("Failed to remove: %v", err)
	}
	if _, err := db.GetCollectionCard("bolt"); !errors.Is(err, ErrCardNotOwned) {
		t.Errorf("Expected ErrCardNotOwned, got %v", err)
	}
	if err := db.RemoveCollectionCard("bolt"); !errors.Is(err, ErrCardNotOwned) {
		t.Errorf("Expected ErrCardNotOwned on second remove, got %v", err)
	}
}

func TestAddCollectionCardRequiresID(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.AddCollectionCard(&CollectionCard{Name: "No id"}); err == nil {
		t.Error("Expected error for missing card id")
	}
}

func TestScanHistory(t *testing.T) {
	db := openTestDB(t)

	x, y, w, h := 10, 20, 300, 420
	first := &ScanRecord{
		CaptureID: "cap-1", CardID: "bolt", CardName: "Lightning Bolt", Confidence: 88, Method: "simulated",
		BoundsX: &x, BoundsY: &y, BoundsWidth: &w, BoundsHeight: &h,
		BrightnessApplied: true, ImageWidth: 1280, ImageHeight: 720,
		ScannedAt: time.Now().Add(-time.Minute),
	}
	second := &ScanRecord{CaptureID: "cap-2", CardID: "lotus", CardName: "Black Lotus", Confidence: 76, Method: "simulated"}

	for _, s := range []*ScanRecord{first, second} {
		if _, err := db.InsertScan(s); err != nil {
			t.Fatalf("Failed to insert scan: %v", err)
		}
	}
	if first.ID == 0 || second.ScannedAt.IsZero() {
		t.Error("InsertScan should fill ID and ScannedAt")
	}

	scans, err := db.GetRecentScans(10)
	if err != nil {
		t.Fatalf("Failed to get scans: %v", err)
	}
	if len(scans) != 2 {
		t.Fatalf("Expected 2 scans, got %d", len(scans))
	}
	if scans[0].CaptureID != "cap-2" {
		t.Errorf("Expected newest first, got %s", scans[0].CaptureID)
	}
	if scans[0].HasBounds() {
		t.Error("second scan has no bounds")
	}
	if !scans[1].HasBounds() || *scans[1].BoundsWidth != 300 || !scans[1].BrightnessApplied {
		t.Errorf("bounds/flags not round-tripped: %+v", scans[1])
	}

	deleted, err := db.DeleteOldScans(time.Now().Add(-30 * time.Second))
	if err != nil || deleted != 1 {
		t.Errorf("DeleteOldScans = %d, %v; want 1", deleted, err)
	}
}

func TestCollectionSummary(t *testing.T) {
	db := openTestDB(t)

	db.AddCollectionCard(&CollectionCard{CardID: "bolt", Name: "Lightning Bolt", Price: 0.5})
	db.AddCollectionCard(&CollectionCard{CardID: "jace", Name: "Jace, the Mind Sculptor", Price: 120})
	db.InsertScan(&ScanRecord{CaptureID: "c", CardID: "bolt", CardName: "Lightning Bolt", Confidence: 90, Method: "simulated"})
	db.InsertScan(&ScanRecord{CaptureID: "d", CardID: "bolt", CardName: "Lightning Bolt", Confidence: 91, Method: "simulated"})

	summary, err := db.GetCollectionSummary()
	if err != nil {
		t.Fatalf("Failed to get summary: %v", err)
	}
	if len(summary) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(summary))
	}
	if summary[0].CardID != "jace" || summary[0].TimesScanned != 0 || summary[0].LastScannedAt != nil {
		t.Errorf("Unexpected first row %+v", summary[0])
	}
	if summary[1].TimesScanned != 2 {
		t.Errorf("Expected bolt scanned twice, got %d", summary[1].TimesScanned)
	}
}

func TestErrorLog(t *testing.T) {
	db := openTestDB(t)

	msg := "permission denied"
	if _, err := db.LogError("camera", "high", "acquirer", "Camera access failed", &msg, time.Time{}); err != nil {
		t.Fatalf("Failed to log error: %v", err)
	}
	if _, err := db.LogError("tracking", "low", "loop", "cycle failed", nil, time.Time{}); err != nil {
		t.Fatalf("Failed to log error: %v", err)
	}

	errs, err := db.GetRecentErrors(10)
	if err != nil {
		t.Fatalf("Failed to get errors: %v", err)
	}
	if len(errs) != 2 {
		t.Fatalf("Expected 2 errors, got %d", len(errs))
	}

	stats, err := db.GetErrorStatsByCategory(time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("Failed to get stats: %v", err)
	}
	if stats["camera"] != 1 || stats["tracking"] != 1 {
		t.Errorf("Unexpected stats %v", stats)
	}

	dbStats, err := db.GetStats()
	if err != nil {
		t.Fatalf("Failed to get db stats: %v", err)
	}
	if dbStats["error_log"] != 2 {
		t.Errorf("Expected error_log count 2, got %d", dbStats["error_log"])
	}
}

func TestBackup(t *testing.T) {
	db := openTestDB(t)
	backupPath := filepath.Join(t.TempDir(), "backups", "copy.db")

	if err := db.Backup(backupPath); err != nil {
		t.Fatalf("Backup failed: %v", err)
	}
	if _, err := os.Stat(backupPath); err != nil {
		t.Errorf("Backup file missing: %v", err)
	}
}
