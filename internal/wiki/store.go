package wiki

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

// Store defines the higher-level page operations built on top of the
// repository, cache and sanitizer.
type Store interface {
	ListAllPages(ctx context.Context) ([]Page, error)
	GetPage(ctx context.Context, name string) (*Page, error)
	SavePage(ctx context.Context, input PageInput) (*SaveResult, error)
}

// Cache is the capability set the store needs from a cache implementation:
// lookup, set with an absolute expiration, and removal.
type Cache interface {
	Get(key string) (any, bool)
	SetWithTTL(key string, value any, ttl time.Duration)
	Delete(key string)
}

// Sanitizer strips unsafe markup from user-submitted text.
type Sanitizer interface {
	Sanitize(string) string
}

// SaveResult reports the outcome of a successful save. Page is the newly
// written state; Previous holds a snapshot of the record as it existed
// before an update, and is nil when the save created a new page.
type SaveResult struct {
	Page     *Page
	Previous *Page
}

// ErrNameTaken indicates a page with the same normalized name already exists.
var ErrNameTaken = eris.New("page name already taken")

const (
	allPagesCacheKey = "pages:all"
	defaultListTTL   = 30 * time.Minute
)

type store struct {
	repo      Repository
	cache     Cache
	sanitizer Sanitizer
	listTTL   time.Duration
	logger    *logrus.Logger
	sentryHub *sentry.Hub
}

var _ Store = (*store)(nil)

// StoreOptions bundles the collaborators the page store is wired with.
type StoreOptions struct {
	Repository Repository
	Cache      Cache
	Sanitizer  Sanitizer
	ListTTL    time.Duration
	Logger     *logrus.Logger
	SentryHub  *sentry.Hub
}

// NewStore wires the page store with its dependencies.
func NewStore(opts StoreOptions) (Store, error) {
	if opts.Repository == nil {
		return nil, eris.New("page repository is required")
	}
	if opts.Cache == nil {
		return nil, eris.New("cache is required")
	}
	if opts.Sanitizer == nil {
		return nil, eris.New("sanitizer is required")
	}

	listTTL := opts.ListTTL
	if listTTL <= 0 {
		listTTL = defaultListTTL
	}

	return &store{
		repo:      opts.Repository,
		cache:     opts.Cache,
		sanitizer: opts.Sanitizer,
		listTTL:   listTTL,
		logger:    opts.Logger,
		sentryHub: opts.SentryHub,
	}, nil
}

// ListAllPages returns every page, serving a cached snapshot when one is
// still live and refreshing the cache from the repository otherwise.
func (s *store) ListAllPages(ctx context.Context) ([]Page, error) {
	if cached, ok := s.cache.Get(allPagesCacheKey); ok {
		if pages, ok := cached.([]Page); ok {
			return pages, nil
		}
	}

	pages, err := s.repo.ListAll(ctx)
	if err != nil {
		s.recordError(nil, err, "listing pages from repository")
		return nil, eris.Wrap(err, "listing pages")
	}

	s.cache.SetWithTTL(allPagesCacheKey, pages, s.listTTL)

	return pages, nil
}

// GetPage returns the page matching the name case-insensitively, or nil when
// absent. Lookups always go to the repository, never the listing cache.
func (s *store) GetPage(ctx context.Context, name string) (*Page, error) {
	page, err := s.repo.GetByName(ctx, name)
	if err != nil {
		s.recordError(logrus.Fields{"name": name}, err, "retrieving page from repository")
		return nil, eris.Wrapf(err, "retrieving page: %s", name)
	}

	return page, nil
}

// SavePage normalizes the submitted name, sanitizes both fields, and upserts
// the page: an identifier resolving to an existing record is updated in
// place, anything else becomes a new record. Creating a page under a taken
// name, or renaming one onto a name another page holds, fails with
// ErrNameTaken. A successful save removes the all-pages cache entry so the
// next listing reflects the change.
func (s *store) SavePage(ctx context.Context, input PageInput) (*SaveResult, error) {
	name := s.sanitizer.Sanitize(NormalizeName(input.Name))
	if name == "" {
		return nil, eris.New("page name is required")
	}
	content := s.sanitizer.Sanitize(input.Content)

	var page, previous *Page

	if input.ID != 0 {
		existing, err := s.repo.FindByID(ctx, input.ID)
		if err != nil {
			s.recordError(logrus.Fields{"page_id": input.ID}, err, "loading page for update")
			return nil, eris.Wrapf(err, "loading page %d for update", input.ID)
		}
		if existing != nil {
			conflict, err := s.repo.GetByName(ctx, name)
			if err != nil {
				s.recordError(logrus.Fields{"name": name}, err, "checking for existing page name")
				return nil, eris.Wrapf(err, "checking for existing page name: %s", name)
			}
			if conflict != nil && conflict.ID != existing.ID {
				return nil, eris.Wrapf(ErrNameTaken, "saving page: %s", name)
			}

			snapshot := *existing
			previous = &snapshot

			existing.Name = name
			existing.Content = content
			if err := s.repo.Update(ctx, existing); err != nil {
				s.recordError(logrus.Fields{"name": name, "page_id": existing.ID}, err, "updating page")
				return nil, eris.Wrapf(err, "updating page: %s", name)
			}
			page = existing
		}
	}

	if page == nil {
		existing, err := s.repo.GetByName(ctx, name)
		if err != nil {
			s.recordError(logrus.Fields{"name": name}, err, "checking for existing page name")
			return nil, eris.Wrapf(err, "checking for existing page name: %s", name)
		}
		if existing != nil {
			return nil, eris.Wrapf(ErrNameTaken, "saving page: %s", name)
		}

		page = &Page{Name: name, Content: content}
		if err := s.repo.Create(ctx, page); err != nil {
			s.recordError(logrus.Fields{"name": name}, err, "creating page")
			return nil, eris.Wrapf(err, "creating page: %s", name)
		}
	}

	s.cache.Delete(allPagesCacheKey)

	return &SaveResult{Page: page, Previous: previous}, nil
}

func (s *store) recordError(fields logrus.Fields, err error, message string) {
	if err == nil {
		return
	}

	if s.logger != nil {
		entry := s.logger.WithField("error", err.Error())
		if len(fields) > 0 {
			entry = entry.WithFields(fields)
		}
		entry.Error(message)
	}

	if s.sentryHub != nil {
		s.sentryHub.CaptureException(err)
	}
}
