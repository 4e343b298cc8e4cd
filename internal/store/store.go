package store

import (
	"context"

	"gorm.io/gorm"
)

// Store bundles the repositories over one database handle.
type Store struct {
	DB          *gorm.DB
	Users       UserRepo
	Alerts      AlertRepo
	Posts       PostRepo
	CaseStudies CaseStudyRepo
	Links       AssociationRepo
}

func New(db *gorm.DB) *Store {
	return &Store{
		DB:          db,
		Users:       NewUserRepo(db),
		Alerts:      NewAlertRepo(db),
		Posts:       NewPostRepo(db),
		CaseStudies: NewCaseStudyRepo(db),
		Links:       NewAssociationRepo(db),
	}
}

// Transaction runs fn in a database transaction, passing the handle every
// repository call inside fn must use.
func (s *Store) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.DB.WithContext(ctx).Transaction(fn)
}
