package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/learnloop/tutor_marketplace/internal/model"
	"github.com/learnloop/tutor_marketplace/internal/repository/base"
)

type UserRepository struct {
	*base.Repository
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{Repository: base.NewRepository(pool)}
}

// GetByID returns the user or (nil, nil) when it does not exist.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	query := `
		SELECT id, role, name, email, hourly_rate, verified, telegram_chat_id, created_at
		FROM users
		WHERE id = $1
	`

	var user model.User
	err := r.QueryRow(ctx, query, id).Scan(
		&user.ID,
		&user.Role,
		&user.Name,
		&user.Email,
		&user.HourlyRate,
		&user.Verified,
		&user.TelegramChatID,
		&user.CreatedAt,
	)

	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}

	return &user, nil
}

// ListTutors returns all verified tutors.
func (r *UserRepository) ListTutors(ctx context.Context) ([]*model.User, error) {
	query := `
		SELECT id, role, name, email, hourly_rate, verified, telegram_chat_id, created_at
		FROM users
		WHERE role = 'tutor' AND verified = true
		ORDER BY name
	`

	return r.list(ctx, "list tutors", query)
}

// ListAdmins returns the adjudicator accounts notified on dispute filing.
func (r *UserRepository) ListAdmins(ctx context.Context) ([]*model.User, error) {
	query := `
		SELECT id, role, name, email, hourly_rate, verified, telegram_chat_id, created_at
		FROM users
		WHERE role = 'admin'
		ORDER BY name
	`

	return r.list(ctx, "list admins", query)
}

// GetTemplate loads the tutor's weekly availability rows keyed by weekday.
func (r *UserRepository) GetTemplate(ctx context.Context, tutorID string) (model.WeeklyTemplate, error) {
	query := `
		SELECT weekday, available, from_time, to_time
		FROM availability_template
		WHERE tutor_id = $1
	`

	rows, err := r.Query(ctx, query, tutorID)
	if err != nil {
		return nil, fmt.Errorf("get availability template: %w", err)
	}
	defer rows.Close()

	template := model.WeeklyTemplate{}
	for rows.Next() {
		var day model.DayAvailability
		if err := rows.Scan(&day.Weekday, &day.Available, &day.From, &day.To); err != nil {
			return nil, fmt.Errorf("scan availability day: %w", err)
		}
		template[day.Weekday] = day
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get availability template: %w", err)
	}

	return template, nil
}

func (r *UserRepository) list(ctx context.Context, op, query string, args ...any) ([]*model.User, error) {
	rows, err := r.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		var user model.User
		err := rows.Scan(
			&user.ID,
			&user.Role,
			&user.Name,
			&user.Email,
			&user.HourlyRate,
			&user.Verified,
			&user.TelegramChatID,
			&user.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, &user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return users, nil
}
