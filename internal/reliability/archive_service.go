// Package reliability archives saved runs to object storage and keeps the
// run store healthy.
package reliability

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aristath/trainlog/internal/modules/runlog"
	"github.com/rs/zerolog"
)

const (
	archivePrefix     = "trainlog-archive-"
	archiveSuffix     = ".tar.gz"
	archiveTimeLayout = "2006-01-02-150405"
	metadataFile      = "archive-metadata.json"

	// Keep a minimum number of archives regardless of age
	minArchivesToKeep = 3
)

// ArchiveMetadata describes the contents of one archive
type ArchiveMetadata struct {
	Timestamp time.Time      `json:"timestamp"`
	Runs      []RunMetadata  `json:"runs"`
	Skipped   []SkippedEntry `json:"skipped,omitempty"`
}

// RunMetadata describes one archived run record
type RunMetadata struct {
	Key       runlog.Key `json:"key"`
	Filename  string     `json:"filename"`
	Episodes  int        `json:"episodes"`
	SizeBytes int64      `json:"size_bytes"`
	Checksum  string     `json:"checksum"`
}

// SkippedEntry is a run that could not be archived
type SkippedEntry struct {
	Key    runlog.Key `json:"key"`
	Reason string     `json:"reason"`
}

// ArchiveInfo represents an archive stored in the bucket
type ArchiveInfo struct {
	Filename  string    `json:"filename"`
	Timestamp time.Time `json:"timestamp"`
	SizeBytes int64     `json:"size_bytes"`
	AgeHours  int64     `json:"age_hours"`
}

// ArchiveService bundles every saved run into a tar.gz and uploads it
type ArchiveService struct {
	store  ObjectStore
	reader runlog.RecordReader
	now    func() time.Time
	log    zerolog.Logger
}

// NewArchiveService creates a new archive service
func NewArchiveService(store ObjectStore, reader runlog.RecordReader, log zerolog.Logger) *ArchiveService {
	return &ArchiveService{
		store:  store,
		reader: reader,
		now:    time.Now,
		log:    log.With().Str("service", "archive").Logger(),
	}
}

// CreateAndUploadArchive archives all readable runs and returns the uploaded
// archive name. Unreadable runs are listed in the metadata and skipped.
func (s *ArchiveService) CreateAndUploadArchive(ctx context.Context) (string, error) {
	s.log.Info().Msg("Starting run archive")
	startTime := time.Now()

	keys, err := s.reader.List(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list runs: %w", err)
	}

	now := s.now().UTC()
	metadata := ArchiveMetadata{
		Timestamp: now,
		Runs:      make([]RunMetadata, 0, len(keys)),
	}

	var buf bytes.Buffer
	gzipWriter := gzip.NewWriter(&buf)
	tarWriter := tar.NewWriter(gzipWriter)

	for _, key := range keys {
		record, err := s.reader.Get(ctx, key)
		if err != nil {
			s.log.Warn().Err(err).Str("key", string(key)).Msg("Skipping run in archive")
			metadata.Skipped = append(metadata.Skipped, SkippedEntry{Key: key, Reason: err.Error()})
			continue
		}

		data, err := runlog.EncodeRecord(record)
		if err != nil {
			return "", err
		}

		filename := string(key) + "_log.json"
		if err := addToArchive(tarWriter, filename, data, now); err != nil {
			return "", fmt.Errorf("failed to add %s to archive: %w", filename, err)
		}

		metadata.Runs = append(metadata.Runs, RunMetadata{
			Key:       key,
			Filename:  filename,
			Episodes:  record.Len(),
			SizeBytes: int64(len(data)),
			Checksum:  checksum(data),
		})
	}

	metadataBytes, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal archive metadata: %w", err)
	}
	if err := addToArchive(tarWriter, metadataFile, metadataBytes, now); err != nil {
		return "", fmt.Errorf("failed to add metadata to archive: %w", err)
	}

	if err := tarWriter.Close(); err != nil {
		return "", fmt.Errorf("failed to finish tar stream: %w", err)
	}
	if err := gzipWriter.Close(); err != nil {
		return "", fmt.Errorf("failed to finish gzip stream: %w", err)
	}

	archiveName := archivePrefix + now.Format(archiveTimeLayout) + archiveSuffix
	size := buf.Len()
	if err := s.store.Upload(ctx, archiveName, &buf); err != nil {
		return "", fmt.Errorf("failed to upload archive: %w", err)
	}

	s.log.Info().
		Str("archive", archiveName).
		Int("runs", len(metadata.Runs)).
		Int("skipped", len(metadata.Skipped)).
		Int("size_bytes", size).
		Dur("duration", time.Since(startTime)).
		Msg("Run archive uploaded")

	return archiveName, nil
}

// ListArchives lists all archives in the bucket, newest first
func (s *ArchiveService) ListArchives(ctx context.Context) ([]ArchiveInfo, error) {
	objects, err := s.store.List(ctx, archivePrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list archives: %w", err)
	}

	now := s.now()
	archives := make([]ArchiveInfo, 0, len(objects))
	for _, obj := range objects {
		timestamp, ok := parseArchiveName(obj.Key)
		if !ok {
			s.log.Warn().Str("filename", obj.Key).Msg("Ignoring object with unexpected name")
			continue
		}

		archives = append(archives, ArchiveInfo{
			Filename:  obj.Key,
			Timestamp: timestamp,
			SizeBytes: obj.Size,
			AgeHours:  int64(now.Sub(timestamp).Hours()),
		})
	}

	sort.Slice(archives, func(i, j int) bool {
		return archives[i].Timestamp.After(archives[j].Timestamp)
	})
	return archives, nil
}

// RotateOldArchives deletes archives older than retentionDays, always
// keeping the newest few. A retention of 0 keeps everything.
func (s *ArchiveService) RotateOldArchives(ctx context.Context, retentionDays int) (int, error) {
	archives, err := s.ListArchives(ctx)
	if err != nil {
		return 0, err
	}

	if retentionDays <= 0 || len(archives) <= minArchivesToKeep {
		return 0, nil
	}

	cutoff := s.now().AddDate(0, 0, -retentionDays)
	deleted := 0
	for _, archive := range archives[minArchivesToKeep:] {
		if !archive.Timestamp.Before(cutoff) {
			continue
		}

		if err := s.store.Delete(ctx, archive.Filename); err != nil {
			s.log.Error().Err(err).Str("filename", archive.Filename).Msg("Failed to delete old archive")
			continue
		}
		deleted++
	}

	s.log.Info().
		Int("deleted", deleted).
		Int("remaining", len(archives)-deleted).
		Msg("Archive rotation completed")

	return deleted, nil
}

func parseArchiveName(name string) (time.Time, bool) {
	if !strings.HasPrefix(name, archivePrefix) || !strings.HasSuffix(name, archiveSuffix) {
		return time.Time{}, false
	}
	stamp := strings.TrimSuffix(strings.TrimPrefix(name, archivePrefix), archiveSuffix)
	t, err := time.Parse(archiveTimeLayout, stamp)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func checksum(data []byte) string {
	return fmt.Sprintf("sha256:%x", sha256.Sum256(data))
}

func addToArchive(tw *tar.Writer, name string, data []byte, modTime time.Time) error {
	header := &tar.Header{
		Name:    name,
		Size:    int64(len(data)),
		Mode:    0644,
		ModTime: modTime,
	}
	if err := tw.WriteHeader(header); err != nil {
		return err
	}
	_, err := tw.Write(data)
	return err
}

// ArchiveJob uploads an archive and rotates old ones on a schedule
type ArchiveJob struct {
	service       *ArchiveService
	retentionDays int
	timeout       time.Duration
}

// NewArchiveJob creates a new archive job
func NewArchiveJob(service *ArchiveService, retentionDays int) *ArchiveJob {
	return &ArchiveJob{
		service:       service,
		retentionDays: retentionDays,
		timeout:       5 * time.Minute,
	}
}

// Name returns the job name
func (j *ArchiveJob) Name() string {
	return "archive_runs"
}

// Run executes the archive job
func (j *ArchiveJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	if _, err := j.service.CreateAndUploadArchive(ctx); err != nil {
		return err
	}
	if _, err := j.service.RotateOldArchives(ctx, j.retentionDays); err != nil {
		return fmt.Errorf("failed to rotate archives: %w", err)
	}
	return nil
}
