package template

import (
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/finparse/financial-parser/internal/common"
	"github.com/finparse/financial-parser/internal/entity"
)

const (
	pendingDir  = "pending"
	approvedDir = "approved"
)

// Store keeps templates as JSON files under <dir>/pending and
// <dir>/approved, one file per template named by institution key. Approval
// moves the file between the two directories.
type Store struct {
	mu        sync.Mutex
	dir       string
	validator *Validator
	logger    *slog.Logger
	// version counts changes to the approved set; the engine compares it to
	// know when its compiled cache is stale.
	version uint64
}

func NewStore(dir string, validator *Validator, logger *slog.Logger) (*Store, error) {
	for _, sub := range []string{pendingDir, approvedDir} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, common.NewAppError("TEMPLATE_DIR", "creating template directory", err)
		}
	}
	return &Store{dir: dir, validator: validator, logger: logger}, nil
}

// Submit validates a raw submission and files it as pending. Resubmitting
// the same key overwrites the previous pending version; an approved template
// with the same key is left untouched until the new one is approved.
func (s *Store) Submit(raw []byte) (*entity.Template, error) {
	tpl, err := s.validator.ValidateRaw(raw)
	if err != nil {
		return nil, err
	}

	tpl.Status = entity.TemplatePending
	tpl.SubmittedAt = time.Now().UTC().Format(time.RFC3339)
	tpl.ApprovedAt = ""
	tpl.ApprovedBy = ""
	tpl.TemplateHash = Hash(tpl)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.write(pendingDir, tpl); err != nil {
		return nil, err
	}
	s.logger.Info("template submitted",
		"institution", tpl.InstitutionKey, "author", tpl.Author, "hash", tpl.TemplateHash[:8])
	return tpl, nil
}

// Approve promotes a pending template. Approving an already-approved key
// with no pending submission is a no-op returning the approved template.
func (s *Store) Approve(institutionKey, approver string) (*entity.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tpl, err := s.read(pendingDir, institutionKey)
	if errors.Is(err, common.ErrNotFound) {
		if approved, aerr := s.read(approvedDir, institutionKey); aerr == nil {
			return approved, nil
		}
		return nil, common.NewAppError("TEMPLATE_NOT_FOUND",
			"no template for "+institutionKey, common.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	tpl.Status = entity.TemplateApproved
	tpl.ApprovedAt = time.Now().UTC().Format(time.RFC3339)
	tpl.ApprovedBy = approver
	if err := s.write(approvedDir, tpl); err != nil {
		return nil, err
	}
	if err := os.Remove(s.path(pendingDir, institutionKey)); err != nil {
		return nil, common.NewAppError("TEMPLATE_MOVE", "removing pending template", err)
	}
	s.version++
	s.logger.Info("template approved", "institution", institutionKey, "by", approver)
	return tpl, nil
}

// ApprovedVersion changes whenever the approved set does.
func (s *Store) ApprovedVersion() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

func (s *Store) ListPending() ([]entity.Template, error)  { return s.list(pendingDir) }
func (s *Store) ListApproved() ([]entity.Template, error) { return s.list(approvedDir) }

// Approved returns the approved template for a key, or ErrNotFound.
func (s *Store) Approved(institutionKey string) (*entity.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(approvedDir, institutionKey)
}

func (s *Store) list(sub string) ([]entity.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(filepath.Join(s.dir, sub))
	if err != nil {
		return nil, common.NewAppError("TEMPLATE_LIST", "listing templates", err)
	}
	var templates []entity.Template
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, sub, e.Name()))
		if err != nil {
			return nil, common.NewAppError("TEMPLATE_READ", "reading template "+e.Name(), err)
		}
		var tpl entity.Template
		if err := json.Unmarshal(data, &tpl); err != nil {
			s.logger.Warn("skipping corrupt template file", "file", e.Name(), "error", err)
			continue
		}
		templates = append(templates, tpl)
	}
	return templates, nil
}

func (s *Store) read(sub, key string) (*entity.Template, error) {
	data, err := os.ReadFile(s.path(sub, key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, common.NewAppError("TEMPLATE_READ", "reading template "+key, err)
	}
	var tpl entity.Template
	if err := json.Unmarshal(data, &tpl); err != nil {
		return nil, common.NewAppError("TEMPLATE_CORRUPT", "template file for "+key+" is corrupt", err)
	}
	return &tpl, nil
}

func (s *Store) write(sub string, tpl *entity.Template) error {
	data, err := json.MarshalIndent(tpl, "", "  ")
	if err != nil {
		return common.WrapError(err, "encoding template")
	}
	target := s.path(sub, tpl.InstitutionKey)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return common.NewAppError("TEMPLATE_WRITE", "writing template", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		return common.NewAppError("TEMPLATE_WRITE", "replacing template", err)
	}
	return nil
}

func (s *Store) path(sub, key string) string {
	return filepath.Join(s.dir, sub, key+".json")
}
