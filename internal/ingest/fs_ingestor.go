package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/arampall/intelligent-document-extraction/constants"
	"github.com/arampall/intelligent-document-extraction/internal/common"
	"github.com/arampall/intelligent-document-extraction/internal/repository"
)

type fsIngestor struct {
	docs   repository.DocumentRepository
	logger *slog.Logger
}

func NewFSIngestor(docs repository.DocumentRepository, logger *slog.Logger) Ingestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &fsIngestor{docs: docs, logger: logger}
}

func (g *fsIngestor) IngestFile(ctx context.Context, profileID, path string, docType constants.DocType) (*Result, error) {
	name := filepath.Base(path)
	if IsHidden(name) {
		return &Result{Skipped: true, Reason: "hidden file"}, nil
	}
	ext := constants.NormalizeExt(filepath.Ext(name))
	format := constants.MapExtToFormat(ext)
	if format == "" {
		g.logger.Debug("skipping unsupported file", "path", path, "ext", ext)
		return &Result{Skipped: true, Reason: fmt.Sprintf("unsupported extension %q", ext)}, nil
	}

	hash, size, err := hashFile(path)
	if err != nil {
		return nil, common.WrapError(err, "hash "+path)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	doc := &repository.Document{
		ProfileID:   profileID,
		SourcePath:  abs,
		FileName:    name,
		FileExt:     ext,
		FileFormat:  format,
		DocType:     docType,
		ContentHash: hash,
		SizeBytes:   size,
	}
	stored, duplicate, err := g.docs.UpsertByHash(ctx, doc)
	if err != nil {
		return nil, err
	}
	return &Result{Document: stored, Duplicate: duplicate}, nil
}

func (g *fsIngestor) IngestDirectory(ctx context.Context, profileID, root string, docType constants.DocType) (*DirStats, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	stats := &DirStats{}
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if IsHidden(d.Name()) && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		stats.Scanned++

		res, err := g.IngestFile(ctx, profileID, path, docType)
		if err != nil {
			stats.Failed++
			g.logger.Error("ingest failed", "path", path, "error", err)
			return nil
		}
		switch {
		case res.Skipped:
			stats.Skipped++
		case res.Duplicate:
			stats.Duplicates++
		default:
			stats.Ingested++
			stats.Documents = append(stats.Documents, res.Document)
		}
		return nil
	})
	if walkErr != nil {
		return stats, walkErr
	}

	g.logger.Info("directory ingested",
		"root", root,
		"scanned", stats.Scanned,
		"ingested", stats.Ingested,
		"duplicates", stats.Duplicates,
		"skipped", stats.Skipped,
		"failed", stats.Failed)
	return stats, nil
}

// IsHidden reports whether a file or directory name is dotfile-hidden.
func IsHidden(name string) bool {
	return len(name) > 0 && name[0] == '.'
}

func hashFile(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}
