package postgres

import (
	"context"

	"gorm.io/gorm"
)

// Store groups the repositories over one gorm handle.
type Store struct {
	DB *gorm.DB
}

func New(db *gorm.DB) *Store { return &Store{DB: db} }

// WithTx runs fn against a Store bound to a single transaction. Any error
// returned by fn rolls the whole transaction back.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Store) error) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{DB: tx})
	})
}

func (s *Store) Users() *UserRepo       { return &UserRepo{db: s.DB} }
func (s *Store) Posts() *PostRepo       { return &PostRepo{db: s.DB} }
func (s *Store) Likes() *LikeRepo       { return &LikeRepo{db: s.DB} }
func (s *Store) Comments() *CommentRepo { return &CommentRepo{db: s.DB} }
