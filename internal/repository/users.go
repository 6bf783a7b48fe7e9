package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/maschat/masscoin-ledger/internal/models"
)

func (q *Queries) CreateUser(ctx context.Context, user *models.User) error {
	err := q.db.QueryRow(ctx, `
		INSERT INTO users (id, username, full_name, email, profile_picture, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING created_at`,
		user.ID, user.Username, user.FullName, user.Email, user.ProfilePicture).Scan(&user.CreatedAt)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (q *Queries) GetUser(ctx context.Context, id uuid.UUID) (models.User, error) {
	var u models.User
	err := q.db.QueryRow(ctx, `
		SELECT id, username, full_name, email, profile_picture, created_at
		FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.Username, &u.FullName, &u.Email, &u.ProfilePicture, &u.CreatedAt)
	return u, err
}

func (q *Queries) CreatePost(ctx context.Context, post *models.Post) error {
	_, err := q.db.Exec(ctx, `INSERT INTO posts (id, user_id, created_at) VALUES ($1, $2, NOW())`,
		post.ID, post.UserID)
	if err != nil {
		return fmt.Errorf("create post: %w", err)
	}
	return nil
}

func (q *Queries) CreateReel(ctx context.Context, reel *models.Reel) error {
	_, err := q.db.Exec(ctx, `INSERT INTO reels (id, user_id, created_at) VALUES ($1, $2, NOW())`,
		reel.ID, reel.UserID)
	if err != nil {
		return fmt.Errorf("create reel: %w", err)
	}
	return nil
}

func (q *Queries) GetPostOwner(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	var owner uuid.UUID
	err := q.db.QueryRow(ctx, `SELECT user_id FROM posts WHERE id = $1`, id).Scan(&owner)
	return owner, err
}

func (q *Queries) GetReelOwner(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	var owner uuid.UUID
	err := q.db.QueryRow(ctx, `SELECT user_id FROM reels WHERE id = $1`, id).Scan(&owner)
	return owner, err
}
