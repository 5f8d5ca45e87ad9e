package wiki

import (
	"context"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Repository defines persistence operations for wiki pages.
type Repository interface {
	GetByName(ctx context.Context, name string) (*Page, error)
	FindByID(ctx context.Context, id uint) (*Page, error)
	ListAll(ctx context.Context) ([]Page, error)
	Create(ctx context.Context, page *Page) error
	Update(ctx context.Context, page *Page) error
}

// GormRepository persists pages using a Gorm database connection.
type GormRepository struct {
	db      *gorm.DB
	logger  *logrus.Logger
	indexMu sync.Mutex
	indexed bool
}

// NewRepository constructs a Gorm-backed repository implementation.
func NewRepository(db *gorm.DB, logger *logrus.Logger) (*GormRepository, error) {
	if db == nil {
		return nil, eris.New("gorm DB is required")
	}

	return &GormRepository{db: db, logger: logger}, nil
}

var _ Repository = (*GormRepository)(nil)

// GetByName returns the page whose name matches case-insensitively, or nil
// when no such page exists. The supporting name index is created on first
// use when migrations have not already done so.
func (r *GormRepository) GetByName(ctx context.Context, name string) (*Page, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return nil, eris.New("page name is required")
	}

	if err := r.ensureNameIndex(ctx); err != nil {
		return nil, err
	}

	var page Page
	err := r.db.WithContext(ctx).First(&page, "name = ? COLLATE NOCASE", trimmed).Error
	if err != nil {
		if eris.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logError(logrus.Fields{"name": trimmed}, err, "fetching page by name")
		return nil, eris.Wrapf(err, "fetching page by name: %s", trimmed)
	}

	return &page, nil
}

// FindByID returns the page with the given identifier or nil when absent.
func (r *GormRepository) FindByID(ctx context.Context, id uint) (*Page, error) {
	if id == 0 {
		return nil, eris.New("page id is required")
	}

	var page Page
	err := r.db.WithContext(ctx).First(&page, id).Error
	if err != nil {
		if eris.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logError(logrus.Fields{"page_id": id}, err, "fetching page by id")
		return nil, eris.Wrapf(err, "fetching page by id: %d", id)
	}

	return &page, nil
}

// ListAll returns every page ordered by name.
func (r *GormRepository) ListAll(ctx context.Context) ([]Page, error) {
	var pages []Page

	if err := r.db.WithContext(ctx).Order("name ASC").Find(&pages).Error; err != nil {
		r.logError(nil, err, "listing pages")
		return nil, eris.Wrap(err, "listing pages")
	}

	return pages, nil
}

// Create inserts a new page row and assigns its identifier.
func (r *GormRepository) Create(ctx context.Context, page *Page) error {
	if page == nil {
		return eris.New("page is nil")
	}
	if strings.TrimSpace(page.Name) == "" {
		return eris.New("page name is required")
	}

	if err := r.db.WithContext(ctx).Create(page).Error; err != nil {
		r.logError(logrus.Fields{"name": page.Name}, err, "creating page")
		return eris.Wrapf(err, "creating page: %s", page.Name)
	}

	return nil
}

// Update persists changes to an existing page row, keeping its identifier.
func (r *GormRepository) Update(ctx context.Context, page *Page) error {
	if page == nil {
		return eris.New("page is nil")
	}
	if page.ID == 0 {
		return eris.New("page id is required for update")
	}
	if strings.TrimSpace(page.Name) == "" {
		return eris.New("page name is required")
	}

	if err := r.db.WithContext(ctx).Save(page).Error; err != nil {
		r.logError(logrus.Fields{"name": page.Name, "page_id": page.ID}, err, "updating page")
		return eris.Wrapf(err, "updating page: %s", page.Name)
	}

	return nil
}

// ensureNameIndex creates the name index when migrations have not already
// done so. A failed attempt is retried on the next call rather than cached.
func (r *GormRepository) ensureNameIndex(ctx context.Context) error {
	r.indexMu.Lock()
	defer r.indexMu.Unlock()

	if r.indexed {
		return nil
	}

	migrator := r.db.WithContext(ctx).Migrator()
	if !migrator.HasIndex(&Page{}, "idx_pages_name") {
		if err := migrator.CreateIndex(&Page{}, "Name"); err != nil {
			r.logError(nil, err, "creating page name index")
			return eris.Wrap(err, "creating page name index")
		}
	}

	r.indexed = true
	return nil
}

func (r *GormRepository) logError(fields logrus.Fields, err error, message string) {
	if r.logger == nil {
		return
	}

	entry := r.logger.WithField("error", err.Error())
	if len(fields) > 0 {
		entry = entry.WithFields(fields)
	}
	entry.Error(message)
}
