package service

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/blake2b"

	"github.com/blubywaff/ftag/internal/constants"
	"github.com/blubywaff/ftag/internal/models"
	"github.com/blubywaff/ftag/internal/repository"
	"github.com/blubywaff/ftag/internal/utils"
)

// Query position errors.
var (
	ErrExceedListBeginning = fmt.Errorf("%s: %w", constants.MsgExceedListBeginning, utils.ErrBadRequest)
	ErrNoResult            = fmt.Errorf("%s: %w", constants.MsgNoResult, utils.ErrNotFound)
	ErrExceedListEnd       = fmt.Errorf("%s: %w", constants.MsgExceedListEnd, utils.ErrNotFound)
	ErrEmptyFile           = fmt.Errorf("file is empty: %w", utils.ErrBadRequest)
	ErrFileTooLarge        = fmt.Errorf("%s: %w", constants.MsgRequestBodyTooLarge, utils.ErrBadRequest)
)

// ExcludesProvider returns the tags a client excludes from queries by default.
type ExcludesProvider interface {
	DefaultExcludes(ctx context.Context, clientID string) (models.TagSet, error)
}

// File is the content of a stored resource.
type File struct {
	Resource *models.Resource
	Data     []byte

	// ETag is a strong validator derived from the BLAKE2b-256 digest of Data
	ETag string
}

// ReconcileReport lists what a reconciliation removed.
type ReconcileReport struct {
	RemovedFiles   []string `json:"removedFiles"`
	RemovedRecords []string `json:"removedRecords"`
}

// ResourceService handles stored files and their tags.
type ResourceService struct {
	repo          repository.ResourceRepository
	excludes      ExcludesProvider
	filesDir      string
	maxUploadSize int64

	// commitMu keeps Reconcile out while an upload is moved into place
	commitMu sync.RWMutex

	newID func() string
	now   func() time.Time
}

// NewResourceService creates a new ResourceService.
//
// Parameters:
//   - repo: Repository for resource records and tags
//   - excludes: Source of each client's default excludes
//   - filesDir: Directory holding the file contents, one file per resource id
//   - maxUploadSize: Largest accepted upload in bytes; zero or less means unlimited
//
// Returns:
//   - A new ResourceService instance
func NewResourceService(repo repository.ResourceRepository, excludes ExcludesProvider, filesDir string, maxUploadSize int64) *ResourceService {
	return &ResourceService{
		repo:          repo,
		excludes:      excludes,
		filesDir:      filesDir,
		maxUploadSize: maxUploadSize,
		newID:         func() string { return uuid.New().String() },
		now:           time.Now,
	}
}

// path returns the location of a resource's contents.
// Ids are UUIDs, which keeps the path inside filesDir.
func (s *ResourceService) path(id string) (string, error) {
	if _, err := uuid.Parse(id); err != nil {
		return "", utils.NewNotFoundError("Resource", id)
	}
	return filepath.Join(s.filesDir, id), nil
}

// AddFile stores the contents of r as a new resource tagged with tags.
// The media type is sniffed from the first bytes. Contents are streamed into
// the staging directory and only moved to their final name together with the
// resource record, so Reconcile never sees a half-written upload. If
// recording the resource fails the file is removed again.
//
// Parameters:
//   - ctx: Context for the operation
//   - r: The file contents
//   - tags: The tags to attach
//
// Returns:
//   - The stored resource
//   - An error if the contents are empty, too large, or cannot be stored
func (s *ResourceService) AddFile(ctx context.Context, r io.Reader, tags models.TagSet) (*models.Resource, error) {
	if s.maxUploadSize > 0 {
		r = io.LimitReader(r, s.maxUploadSize+1)
	}

	head := make([]byte, constants.MimeSniffLength)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if n == 0 {
		return nil, utils.New(ErrEmptyFile, http.StatusBadRequest, "Uploaded file is empty")
	}
	head = head[:n]
	mimetype := http.DetectContentType(head)

	id := s.newID()
	path, err := s.path(id)
	if err != nil {
		return nil, err
	}

	staged, err := s.stage(id, head, r)
	if err != nil {
		return nil, err
	}

	created := models.NewResource(id, mimetype, s.now(), tags)
	if err := s.commit(ctx, staged, path, &created); err != nil {
		return nil, err
	}

	utils.LogResource(constants.LogEventResourceUpload, id, "", created.Tags)
	return &created, nil
}

func (s *ResourceService) stagingDir() string {
	return filepath.Join(s.filesDir, constants.StagingDirName)
}

// stage writes head followed by the rest of r to the staging directory and
// returns the staged path. The staged file is removed on any error.
func (s *ResourceService) stage(id string, head []byte, r io.Reader) (string, error) {
	if err := os.MkdirAll(s.stagingDir(), 0o750); err != nil {
		return "", fmt.Errorf("failed to create files directory: %w", err)
	}

	staged := filepath.Join(s.stagingDir(), id)
	file, err := os.OpenFile(staged, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}

	err = writeUpload(file, head, r, s.maxUploadSize)
	if closeErr := file.Close(); closeErr != nil && err == nil {
		err = fmt.Errorf("failed to close file: %w", closeErr)
	}
	if err != nil {
		removeFile(staged, id)
		return "", err
	}
	return staged, nil
}

// writeUpload writes head followed by the rest of r, failing once more than
// limit bytes arrive. A limit of zero disables the check.
func writeUpload(w io.Writer, head []byte, r io.Reader, limit int64) error {
	written, err := w.Write(head)
	if err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	copied, err := io.Copy(w, r)
	if err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	if limit > 0 && int64(written)+copied > limit {
		return utils.New(ErrFileTooLarge, http.StatusRequestEntityTooLarge, constants.MsgRequestBodyTooLarge)
	}
	return nil
}

// commit moves a staged file into place and records the resource. Reconcile
// is held off until both steps are done.
func (s *ResourceService) commit(ctx context.Context, staged, path string, resource *models.Resource) error {
	s.commitMu.RLock()
	defer s.commitMu.RUnlock()

	if err := os.Rename(staged, path); err != nil {
		removeFile(staged, resource.Id)
		return fmt.Errorf("failed to move file into place: %w", err)
	}

	if err := s.repo.Create(ctx, resource); err != nil {
		removeFile(path, resource.Id)
		return fmt.Errorf("failed to record resource: %w", err)
	}
	return nil
}

func removeFile(path, id string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Error().Err(err).Str("resource_id", id).Msg("Could not remove file after failed upload")
	}
}

// GetResource retrieves a resource descriptor.
func (s *ResourceService) GetResource(ctx context.Context, id string) (*models.Resource, error) {
	if _, err := s.path(id); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

// GetFile retrieves a resource together with its contents.
func (s *ResourceService) GetFile(ctx context.Context, id string) (*File, error) {
	path, err := s.path(id)
	if err != nil {
		return nil, err
	}

	resource, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Warn().Str("resource_id", id).Msg("Resource has no file contents")
			return nil, utils.NewNotFoundError("File", id)
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return &File{
		Resource: resource,
		Data:     data,
		ETag:     ETag(data),
	}, nil
}

// ETag returns the quoted BLAKE2b-256 digest of data.
func ETag(data []byte) string {
	sum := blake2b.Sum256(data)
	return `"` + hex.EncodeToString(sum[:]) + `"`
}

// ChangeTags attaches add and detaches del, then returns the updated resource.
// A tag in both sets ends up detached.
func (s *ResourceService) ChangeTags(ctx context.Context, id string, add, del models.TagSet) (*models.Resource, error) {
	if _, err := s.path(id); err != nil {
		return nil, err
	}
	if err := s.repo.ChangeTags(ctx, id, add, del); err != nil {
		return nil, fmt.Errorf("failed to change tags: %w", err)
	}

	resource, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	utils.LogResource(constants.LogEventResourceRetag, id, "", resource.Tags)
	return resource, nil
}

// Query returns the resource at a 1-based position of the newest-first list
// matching include and exclude. The client's default excludes that are not
// explicitly included are added to exclude.
//
// Parameters:
//   - ctx: Context for the operation
//   - clientID: The calling client, empty for a server context
//   - include: Tags every result must carry
//   - exclude: Tags no result may carry
//   - number: The 1-based position to return
//
// Returns:
//   - The resource at number with its position and the list size
//   - ErrExceedListBeginning, ErrNoResult or ErrExceedListEnd for a position outside the list
func (s *ResourceService) Query(ctx context.Context, clientID string, include, exclude models.TagSet, number int) (*models.QueryResult, error) {
	if number < 1 {
		return nil, utils.New(ErrExceedListBeginning, http.StatusBadRequest, constants.MsgExceedListBeginning)
	}

	defaults, err := s.excludes.DefaultExcludes(ctx, clientID)
	if err != nil {
		return nil, err
	}

	q := models.Query{Include: include, Exclude: exclude, Offset: number - 1, Limit: 1}.
		WithDefaultExcludes(defaults)

	resources, total, err := s.repo.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to query resources: %w", err)
	}

	if len(resources) == 0 {
		if number == 1 {
			return nil, utils.New(ErrNoResult, http.StatusNotFound, constants.MsgNoResult)
		}
		return nil, utils.New(ErrExceedListEnd, http.StatusNotFound, constants.MsgExceedListEnd)
	}

	return &models.QueryResult{
		Resource: resources[0],
		Number:   number,
		Total:    total,
	}, nil
}

// Reconcile removes files without a resource record and records without a file.
// Uploads still in the staging directory are left alone unless they are older
// than constants.StagingExpiry.
func (s *ResourceService) Reconcile(ctx context.Context) (*ReconcileReport, error) {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	entries, err := os.ReadDir(s.filesDir)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read files directory: %w", err)
	}

	files := make(map[string]bool, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			files[entry.Name()] = true
		}
	}

	ids, err := s.repo.ListIDs(ctx)
	if err != nil {
		return nil, err
	}

	report := &ReconcileReport{RemovedFiles: []string{}, RemovedRecords: []string{}}
	records := make(map[string]bool, len(ids))

	for _, id := range ids {
		records[id] = true
		if files[id] {
			continue
		}
		if err := s.repo.Delete(ctx, id); err != nil {
			log.Error().Err(err).Str("resource_id", id).Msg("Could not remove resource record")
			continue
		}
		report.RemovedRecords = append(report.RemovedRecords, id)
	}

	for name := range files {
		if records[name] {
			continue
		}
		if err := os.Remove(filepath.Join(s.filesDir, name)); err != nil {
			log.Error().Err(err).Str("file", name).Msg("Could not remove file")
			continue
		}
		report.RemovedFiles = append(report.RemovedFiles, name)
	}
	s.removeAbandonedUploads(report)
	sort.Strings(report.RemovedFiles)

	log.Info().
		Int("removed_files", len(report.RemovedFiles)).
		Int("removed_records", len(report.RemovedRecords)).
		Msg("Resources reconciled")

	return report, nil
}

// removeAbandonedUploads deletes staged uploads old enough that no request
// can still be writing them.
func (s *ResourceService) removeAbandonedUploads(report *ReconcileReport) {
	entries, err := os.ReadDir(s.stagingDir())
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Error().Err(err).Msg("Could not read staging directory")
		}
		return
	}

	cutoff := s.now().Add(-constants.StagingExpiry)
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil || entry.IsDir() || info.ModTime().After(cutoff) {
			continue
		}
		name := filepath.Join(constants.StagingDirName, entry.Name())
		if err := os.Remove(filepath.Join(s.filesDir, name)); err != nil {
			log.Error().Err(err).Str("file", name).Msg("Could not remove abandoned upload")
			continue
		}
		report.RemovedFiles = append(report.RemovedFiles, name)
	}
}
