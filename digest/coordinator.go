package digest

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/xiaoyuanzhu-com/mylifedb-digest/config"
	"github.com/xiaoyuanzhu-com/mylifedb-digest/db"
	"github.com/xiaoyuanzhu-com/mylifedb-digest/log"
	"github.com/xiaoyuanzhu-com/mylifedb-digest/notifications"
)

const (
	maxAttemptsMarker   = "max attempts reached"
	reasonNotApplicable = "Not applicable"
	reasonNotProduced   = "Output not produced"
	reasonNotRegistered = "Digester no longer registered"
)

// ProcessOptions modifies a coordinator pass
type ProcessOptions struct {
	// Reset clears digest state before processing. When Digester is set only
	// that digester's outputs are reset, otherwise everything for the file.
	Reset    bool
	Digester string
}

// Coordinator processes one file at a time: it takes the file's advisory
// lock, walks the registry in registration order, and persists each
// digester's outputs. Within a file digesters run strictly sequentially and
// observe each other's completed outputs; across files there is no ordering.
type Coordinator struct {
	registry    *Registry
	notif       *notifications.Service
	maxAttempts int
	owner       string
}

// NewCoordinator creates a coordinator. notif may be nil.
func NewCoordinator(registry *Registry, notif *notifications.Service) *Coordinator {
	hostname, _ := os.Hostname()
	return &Coordinator{
		registry:    registry,
		notif:       notif,
		maxAttempts: config.Get().MaxDigestAttempts,
		owner:       fmt.Sprintf("%s-%d", hostname, os.Getpid()),
	}
}

// Process runs all registered digesters over one file. Lock contention is a
// silent no-op: whoever holds the lock will finish the work.
func (c *Coordinator) Process(ctx context.Context, filePath string, opts *ProcessOptions) error {
	acquired, err := db.TryAcquireFileLock(filePath, c.owner)
	if err != nil {
		return fmt.Errorf("failed to acquire file lock: %w", err)
	}
	if !acquired {
		log.Debug().Str("path", filePath).Msg("file locked elsewhere, skipping")
		return nil
	}
	// The lock must be released on every exit path, including panics
	defer db.ReleaseFileLock(filePath)

	file, err := db.GetFileByPath(filePath)
	if err != nil {
		return err
	}
	if file == nil {
		log.Warn().Str("path", filePath).Msg("file not found in catalog")
		return nil
	}

	if opts != nil && opts.Reset {
		if err := c.resetDigests(file, opts.Digester); err != nil {
			return err
		}
		// Re-read: reset may have cleared the screenshot pointer
		file, err = db.GetFileByPath(filePath)
		if err != nil || file == nil {
			return err
		}
	}

	processed := 0
	skipped := 0
	failed := 0

	for _, digester := range c.registry.All() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		switch c.runDigester(ctx, file, digester) {
		case outcomeProcessed:
			processed++
		case outcomeSkipped:
			skipped++
		case outcomeFailed:
			failed++
		}
	}

	log.Info().
		Str("path", filePath).
		Int("processed", processed).
		Int("skipped", skipped).
		Int("failed", failed).
		Msg("file processing complete")

	if c.notif != nil && processed > 0 {
		c.notif.NotifyDigestUpdate(filePath)
	}

	return nil
}

type outcome int

const (
	outcomeCompleted outcome = iota // nothing pending
	outcomeProcessed
	outcomeSkipped
	outcomeFailed
)

// runDigester drives a single digester over the file's pending outputs
func (c *Coordinator) runDigester(ctx context.Context, file *db.FileRecord, d Digester) outcome {
	name := d.Name()
	outputNames := d.OutputNames()

	// Re-read rows so this digester observes its predecessors' outputs
	existing, err := db.ListDigestsForFile(file.Path)
	if err != nil {
		log.Error().Err(err).Str("path", file.Path).Str("digester", name).Msg("failed to load digests")
		return outcomeFailed
	}

	byName := make(map[string]db.Digest, len(existing))
	for _, row := range existing {
		byName[row.Digester] = row
	}

	// Another worker (or a stale row) owns this digester's outputs; the
	// stale sweep will recover abandoned rows.
	for _, outputName := range outputNames {
		if row, ok := byName[outputName]; ok && row.Status == db.DigestStatusInProgress {
			log.Debug().Str("path", file.Path).Str("digester", name).Msg("in progress, skipping")
			return outcomeSkipped
		}
	}

	pending := c.pendingOutputs(outputNames, byName)
	if len(pending) == 0 {
		return outcomeCompleted
	}

	can, err := c.safeCanDigest(ctx, d, file, existing)
	if err != nil {
		// Treated like a run failure: consume an attempt so a digester whose
		// predicate always errors still reaches the attempts cap
		for _, outputName := range pending {
			c.markInProgress(file.Path, outputName)
			c.markFailed(file.Path, outputName, err.Error())
		}
		log.Error().Err(err).Str("path", file.Path).Str("digester", name).Msg("canDigest error")
		return outcomeFailed
	}

	if !can {
		for _, outputName := range pending {
			c.markSkipped(file.Path, outputName, reasonNotApplicable)
		}
		log.Debug().Str("path", file.Path).Str("digester", name).Msg("not applicable")
		return outcomeSkipped
	}

	for _, outputName := range pending {
		c.markInProgress(file.Path, outputName)
	}

	outputs, err := c.safeDigest(ctx, d, file, existing)
	if err != nil {
		for _, outputName := range pending {
			c.markFailed(file.Path, outputName, err.Error())
		}
		log.Error().Err(err).Str("path", file.Path).Str("digester", name).Msg("digest failed")
		return outcomeFailed
	}

	declared := make(map[string]bool, len(outputNames))
	for _, outputName := range outputNames {
		declared[outputName] = true
	}

	produced := make(map[string]bool, len(outputs))
	for _, output := range outputs {
		if !declared[output.Name] {
			log.Warn().
				Str("path", file.Path).
				Str("digester", name).
				Str("output", output.Name).
				Msg("digester produced undeclared output, ignoring")
			continue
		}
		produced[output.Name] = true
		c.saveOutput(file, output)
	}

	// Anything pending the digester chose not to produce this run
	for _, outputName := range pending {
		if !produced[outputName] {
			c.markSkipped(file.Path, outputName, reasonNotProduced)
		}
	}

	log.Info().Str("path", file.Path).Str("digester", name).Msg("processed")
	return outcomeProcessed
}

// pendingOutputs returns the output names that still need work: row absent,
// todo, or failed below the attempts cap.
func (c *Coordinator) pendingOutputs(outputNames []string, byName map[string]db.Digest) []string {
	var pending []string
	for _, outputName := range outputNames {
		row, ok := byName[outputName]
		if !ok || row.Status == db.DigestStatusTodo {
			pending = append(pending, outputName)
		} else if row.Status == db.DigestStatusFailed && row.Attempts < c.maxAttempts {
			pending = append(pending, outputName)
		}
	}
	return pending
}

// safeCanDigest calls CanDigest, converting panics to errors
func (c *Coordinator) safeCanDigest(ctx context.Context, d Digester, file *db.FileRecord, existing []db.Digest) (can bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("digester %s canDigest panicked: %v", d.Name(), r)
		}
	}()
	return d.CanDigest(ctx, file, existing)
}

// safeDigest calls Digest, converting panics to errors so one bad digester
// never stops the others
func (c *Coordinator) safeDigest(ctx context.Context, d Digester, file *db.FileRecord, existing []db.Digest) (outputs []Output, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("digester %s panicked: %v", d.Name(), r)
		}
	}()
	return d.Digest(ctx, file, existing)
}

// getOrCreateRow loads the digest row for (filePath, outputName), creating a
// todo placeholder if missing
func getOrCreateRow(filePath, outputName string) (*db.Digest, error) {
	if _, err := db.UpsertDigestIfMissing(filePath, outputName); err != nil {
		return nil, err
	}
	return db.GetDigestByFileAndDigester(filePath, outputName)
}

// markInProgress transitions an output to in-progress, consuming one attempt
func (c *Coordinator) markInProgress(filePath, outputName string) {
	row, err := getOrCreateRow(filePath, outputName)
	if err != nil || row == nil {
		log.Error().Err(err).Str("path", filePath).Str("digester", outputName).Msg("failed to load digest row")
		return
	}

	row.Status = db.DigestStatusInProgress
	row.Attempts = min(row.Attempts+1, c.maxAttempts)
	if err := db.UpdateDigest(row); err != nil {
		log.Error().Err(err).Str("path", filePath).Str("digester", outputName).Msg("failed to mark in-progress")
	}
}

// markFailed records a failure. Attempts were already consumed at the
// in-progress transition; at the cap the error gets the terminal marker.
func (c *Coordinator) markFailed(filePath, outputName, errMsg string) {
	row, err := getOrCreateRow(filePath, outputName)
	if err != nil || row == nil {
		return
	}

	if row.Attempts >= c.maxAttempts && !strings.Contains(errMsg, maxAttemptsMarker) {
		errMsg = errMsg + " (" + maxAttemptsMarker + ")"
	}

	row.Status = db.DigestStatusFailed
	row.Error = &errMsg
	if err := db.UpdateDigest(row); err != nil {
		log.Error().Err(err).Str("path", filePath).Str("digester", outputName).Msg("failed to mark failed")
	}
}

// markSkipped records that an output does not apply
func (c *Coordinator) markSkipped(filePath, outputName, reason string) {
	row, err := getOrCreateRow(filePath, outputName)
	if err != nil || row == nil {
		return
	}

	row.Status = db.DigestStatusSkipped
	row.Error = &reason
	row.Attempts = 0
	if err := db.UpdateDigest(row); err != nil {
		log.Error().Err(err).Str("path", filePath).Str("digester", outputName).Msg("failed to mark skipped")
	}
}

// saveOutput persists one produced output to its digest row, stores any
// binary artifact in the blob store, and maintains the file's denormalized
// screenshot pointer.
func (c *Coordinator) saveOutput(file *db.FileRecord, output Output) {
	row, err := getOrCreateRow(file.Path, output.Name)
	if err != nil || row == nil {
		log.Error().Err(err).Str("path", file.Path).Str("digester", output.Name).Msg("failed to load digest row")
		return
	}

	row.Status = output.Status
	row.Content = output.Content
	row.Error = output.Error

	if output.BlobName != nil && len(output.BlobData) > 0 {
		blobKey := db.GeneratePathHash(file.Path) + "/" + output.Name + "/" + *output.BlobName
		db.SqlarStore(blobKey, output.BlobData, 0644)
		row.SqlarName = &blobKey
	}

	switch output.Status {
	case db.DigestStatusCompleted:
		row.Attempts = 0
		row.Error = nil
	case db.DigestStatusSkipped:
		row.Attempts = 0
	case db.DigestStatusFailed:
		if row.Error == nil {
			msg := "digester reported failure"
			row.Error = &msg
		}
		if row.Attempts >= c.maxAttempts && !strings.Contains(*row.Error, maxAttemptsMarker) {
			msg := *row.Error + " (" + maxAttemptsMarker + ")"
			row.Error = &msg
		}
	}

	if err := db.UpdateDigest(row); err != nil {
		log.Error().Err(err).Str("path", file.Path).Str("digester", output.Name).Msg("failed to save digest output")
		return
	}

	// Denormalize the screenshot pointer onto the file record
	if output.Status == db.DigestStatusCompleted && output.IsScreenshot && row.SqlarName != nil {
		if err := db.UpdateFileField(file.Path, "screenshot_sqlar", *row.SqlarName); err != nil {
			log.Error().Err(err).Str("path", file.Path).Msg("failed to update screenshot pointer")
		} else if c.notif != nil {
			c.notif.NotifyPreviewUpdated(file.Path)
		}
	}

	// Fresh content invalidates downstream derived outputs
	if output.Status == db.DigestStatusCompleted && output.Content != nil && *output.Content != "" {
		c.resetDownstream(file.Path, output.Name)
	}
}

// resetDownstream flips terminal downstream rows back to todo after an
// upstream output completed with fresh content. Rows still todo or
// in-progress are left alone.
func (c *Coordinator) resetDownstream(filePath, trigger string) {
	targets, ok := cascadingResets[trigger]
	if !ok || len(targets) == 0 {
		return
	}

	existing, err := db.ListDigestsForFile(filePath)
	if err != nil {
		return
	}
	byName := make(map[string]db.Digest, len(existing))
	for _, row := range existing {
		byName[row.Digester] = row
	}

	var reset []string
	for _, target := range targets {
		row, ok := byName[target]
		if !ok {
			continue
		}
		switch row.Status {
		case db.DigestStatusCompleted, db.DigestStatusSkipped, db.DigestStatusFailed:
			row.Status = db.DigestStatusTodo
			row.Content = nil
			row.SqlarName = nil
			row.Error = nil
			row.Attempts = 0
			if err := db.UpdateDigest(&row); err == nil {
				reset = append(reset, target)
			}
		}
	}

	if len(reset) > 0 {
		log.Info().
			Str("path", filePath).
			Str("trigger", trigger).
			Strs("targets", reset).
			Msg("reset downstream digests")
	}
}

// resetDigests clears digest state for a targeted reset (one digester) or a
// full one. Blob artifacts are removed by prefix and a cleared screenshot
// digest also clears the file's denormalized pointer.
func (c *Coordinator) resetDigests(file *db.FileRecord, digesterName string) error {
	rows, err := db.ListDigestsForFile(file.Path)
	if err != nil {
		return err
	}

	// A digester name targets all of its outputs; anything else matches rows
	// by output name directly.
	match := func(rowName string) bool {
		if digesterName == "" {
			return true
		}
		if rowName == digesterName {
			return true
		}
		if d := c.registry.Get(digesterName); d != nil {
			for _, outputName := range d.OutputNames() {
				if rowName == outputName {
					return true
				}
			}
		}
		return false
	}

	pathHash := db.GeneratePathHash(file.Path)

	for _, row := range rows {
		if !match(row.Digester) {
			continue
		}

		db.SqlarDeletePrefix(pathHash + "/" + row.Digester + "/")
		if row.SqlarName != nil {
			// Covers artifacts keyed under an older path hash (file moves)
			db.SqlarDelete(*row.SqlarName)
		}

		if file.ScreenshotSqlar != nil && row.SqlarName != nil && *file.ScreenshotSqlar == *row.SqlarName {
			if err := db.UpdateFileField(file.Path, "screenshot_sqlar", nil); err != nil {
				log.Error().Err(err).Str("path", file.Path).Msg("failed to clear screenshot pointer")
			}
		}

		row.Status = db.DigestStatusTodo
		row.Content = nil
		row.SqlarName = nil
		row.Error = nil
		row.Attempts = 0
		if err := db.UpdateDigest(&row); err != nil {
			return err
		}
	}

	if digesterName == "" {
		// Full reset: drop every artifact for the file
		db.SqlarDeletePrefix(pathHash + "/")
	}

	log.Info().Str("path", file.Path).Str("digester", digesterName).Msg("digests reset")
	return nil
}
