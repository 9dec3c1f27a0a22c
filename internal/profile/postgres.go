package profile

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists the profile graph in three tables mirroring the
// document layout: one user row, at most one spouse row per user, one row per
// child with a store-assigned id.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS "UserProfile" (
			id TEXT PRIMARY KEY,
			"firstName" TEXT NOT NULL DEFAULT '',
			"middleName" TEXT NOT NULL DEFAULT '',
			"lastName" TEXT NOT NULL DEFAULT '',
			"dateOfBirth" TEXT NOT NULL DEFAULT '',
			address TEXT NOT NULL DEFAULT '',
			"profileComplete" BOOLEAN NOT NULL DEFAULT FALSE,
			"childrenCount" INTEGER NOT NULL DEFAULT 0,
			"profileCreatedAt" TIMESTAMPTZ NOT NULL,
			"profileUpdatedAt" TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS "SpouseProfile" (
			"userId" TEXT PRIMARY KEY,
			"firstName" TEXT NOT NULL DEFAULT '',
			"middleName" TEXT NOT NULL DEFAULT '',
			"lastName" TEXT NOT NULL DEFAULT '',
			"dateOfBirth" TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS "ChildProfile" (
			id TEXT PRIMARY KEY,
			"userId" TEXT NOT NULL,
			"firstName" TEXT NOT NULL DEFAULT '',
			"middleName" TEXT NOT NULL DEFAULT '',
			"lastName" TEXT NOT NULL DEFAULT '',
			"dateOfBirth" TEXT NOT NULL DEFAULT '',
			interests TEXT NOT NULL DEFAULT '[]',
			"medicalConsiderations" TEXT NOT NULL DEFAULT '[]',
			"createdAt" TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS "ChildProfile_userId_idx" ON "ChildProfile" ("userId")`,
	}
	for _, statement := range statements {
		if _, err := s.db.Exec(ctx, statement); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) GetProfile(ctx context.Context, userID string) (Graph, error) {
	user, exists, err := s.loadUser(ctx, userID)
	if err != nil {
		return Graph{}, err
	}
	if !exists {
		return Graph{Exists: false}, nil
	}

	graph := Graph{Exists: true, User: user, Children: []ChildProfile{}}

	spouse, spouseExists, err := s.loadSpouse(ctx, userID)
	if err != nil {
		return Graph{}, err
	}
	if spouseExists {
		graph.Spouse = &spouse
	}

	children, err := s.loadChildren(ctx, userID)
	if err != nil {
		return Graph{}, err
	}
	graph.Children = children

	// Keep the denormalized count in step with the child rows on every read.
	if _, err := s.db.Exec(
		ctx,
		`UPDATE "UserProfile" SET "childrenCount" = $2 WHERE id = $1`,
		userID,
		len(children),
	); err != nil {
		return Graph{}, err
	}

	return graph, nil
}

func (s *PostgresStore) UpdateUser(ctx context.Context, userID string, fields Fields) error {
	now := time.Now().UTC()

	current, exists, err := s.loadUser(ctx, userID)
	if err != nil {
		return err
	}
	if !exists {
		current = UserProfile{ProfileCreatedAt: now}
	}

	if err := applyUserFields(&current, fields); err != nil {
		return err
	}
	current.ProfileUpdatedAt = now

	if err := current.ValidateAt(now); err != nil {
		return err
	}

	if _, err := s.db.Exec(
		ctx,
		`INSERT INTO "UserProfile" (
			id, "firstName", "middleName", "lastName", "dateOfBirth", address,
			"profileCreatedAt", "profileUpdatedAt"
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			"firstName" = EXCLUDED."firstName",
			"middleName" = EXCLUDED."middleName",
			"lastName" = EXCLUDED."lastName",
			"dateOfBirth" = EXCLUDED."dateOfBirth",
			address = EXCLUDED.address,
			"profileUpdatedAt" = EXCLUDED."profileUpdatedAt"`,
		userID,
		current.Name.FirstName,
		current.Name.MiddleName,
		current.Name.LastName,
		current.DateOfBirth,
		current.Address,
		current.ProfileCreatedAt,
		current.ProfileUpdatedAt,
	); err != nil {
		return err
	}

	return s.refreshCompletion(ctx, userID)
}

func (s *PostgresStore) AddOrReplaceSpouse(ctx context.Context, userID string, fields Fields) error {
	now := time.Now().UTC()

	current, _, err := s.loadSpouse(ctx, userID)
	if err != nil {
		return err
	}
	if err := applyPersonFields(&current.PersonProfile, fields); err != nil {
		return err
	}
	if err := current.ValidateAt(now); err != nil {
		return err
	}

	if _, err := s.db.Exec(
		ctx,
		`INSERT INTO "SpouseProfile" ("userId", "firstName", "middleName", "lastName", "dateOfBirth")
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT ("userId") DO UPDATE SET
			"firstName" = EXCLUDED."firstName",
			"middleName" = EXCLUDED."middleName",
			"lastName" = EXCLUDED."lastName",
			"dateOfBirth" = EXCLUDED."dateOfBirth"`,
		userID,
		current.Name.FirstName,
		current.Name.MiddleName,
		current.Name.LastName,
		current.DateOfBirth,
	); err != nil {
		return err
	}

	return s.refreshCompletion(ctx, userID)
}

func (s *PostgresStore) AddChild(ctx context.Context, userID string, fields Fields) (string, error) {
	now := time.Now().UTC()

	child := ChildProfile{Interests: []string{}, MedicalConsiderations: []string{}}
	if err := applyChildFields(&child, fields); err != nil {
		return "", err
	}
	if err := child.ValidateAt(now); err != nil {
		return "", err
	}

	childID := uuid.NewString()
	if _, err := s.db.Exec(
		ctx,
		`INSERT INTO "ChildProfile" (
			id, "userId", "firstName", "middleName", "lastName", "dateOfBirth",
			interests, "medicalConsiderations", "createdAt"
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		childID,
		userID,
		child.Name.FirstName,
		child.Name.MiddleName,
		child.Name.LastName,
		child.DateOfBirth,
		marshalStringList(child.Interests),
		marshalStringList(child.MedicalConsiderations),
		now,
	); err != nil {
		return "", err
	}

	if err := s.refreshChildrenCount(ctx, userID); err != nil {
		return "", err
	}
	return childID, s.refreshCompletion(ctx, userID)
}

func (s *PostgresStore) UpdateChild(ctx context.Context, userID, childID string, fields Fields) error {
	now := time.Now().UTC()

	current := ChildProfile{}
	var interestsRaw, medicalRaw string
	err := s.db.QueryRow(
		ctx,
		`SELECT "firstName", "middleName", "lastName", "dateOfBirth", interests, "medicalConsiderations"
		 FROM "ChildProfile"
		 WHERE id = $1 AND "userId" = $2`,
		childID,
		userID,
	).Scan(
		&current.Name.FirstName,
		&current.Name.MiddleName,
		&current.Name.LastName,
		&current.DateOfBirth,
		&interestsRaw,
		&medicalRaw,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return &NotFoundError{Resource: "child", ID: childID}
	}
	if err != nil {
		return err
	}
	current.ID = childID
	current.Interests = unmarshalStringList(interestsRaw)
	current.MedicalConsiderations = unmarshalStringList(medicalRaw)

	if err := applyChildFields(&current, fields); err != nil {
		return err
	}
	if err := current.ValidateAt(now); err != nil {
		return err
	}

	if _, err := s.db.Exec(
		ctx,
		`UPDATE "ChildProfile" SET
			"firstName" = $3,
			"middleName" = $4,
			"lastName" = $5,
			"dateOfBirth" = $6,
			interests = $7,
			"medicalConsiderations" = $8
		 WHERE id = $1 AND "userId" = $2`,
		childID,
		userID,
		current.Name.FirstName,
		current.Name.MiddleName,
		current.Name.LastName,
		current.DateOfBirth,
		marshalStringList(current.Interests),
		marshalStringList(current.MedicalConsiderations),
	); err != nil {
		return err
	}

	return s.refreshCompletion(ctx, userID)
}

func (s *PostgresStore) CompletionStatus(ctx context.Context, userID string) (CompletionStatus, error) {
	graph, err := s.GetProfile(ctx, userID)
	if err != nil {
		return CompletionStatus{}, err
	}
	return CompletionOf(graph), nil
}

func (s *PostgresStore) loadUser(ctx context.Context, userID string) (UserProfile, bool, error) {
	user := UserProfile{}
	err := s.db.QueryRow(
		ctx,
		`SELECT "firstName", "middleName", "lastName", "dateOfBirth", address,
			"profileComplete", "profileCreatedAt", "profileUpdatedAt"
		 FROM "UserProfile" WHERE id = $1`,
		userID,
	).Scan(
		&user.Name.FirstName,
		&user.Name.MiddleName,
		&user.Name.LastName,
		&user.DateOfBirth,
		&user.Address,
		&user.ProfileComplete,
		&user.ProfileCreatedAt,
		&user.ProfileUpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return UserProfile{}, false, nil
	}
	if err != nil {
		return UserProfile{}, false, err
	}
	return user, true, nil
}

func (s *PostgresStore) loadSpouse(ctx context.Context, userID string) (SpouseProfile, bool, error) {
	spouse := SpouseProfile{}
	err := s.db.QueryRow(
		ctx,
		`SELECT "firstName", "middleName", "lastName", "dateOfBirth"
		 FROM "SpouseProfile" WHERE "userId" = $1`,
		userID,
	).Scan(
		&spouse.Name.FirstName,
		&spouse.Name.MiddleName,
		&spouse.Name.LastName,
		&spouse.DateOfBirth,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return SpouseProfile{}, false, nil
	}
	if err != nil {
		return SpouseProfile{}, false, err
	}
	return spouse, true, nil
}

func (s *PostgresStore) loadChildren(ctx context.Context, userID string) ([]ChildProfile, error) {
	rows, err := s.db.Query(
		ctx,
		`SELECT id, "firstName", "middleName", "lastName", "dateOfBirth", interests, "medicalConsiderations"
		 FROM "ChildProfile"
		 WHERE "userId" = $1
		 ORDER BY "createdAt", id`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	children := make([]ChildProfile, 0, 4)
	for rows.Next() {
		child := ChildProfile{}
		var interestsRaw, medicalRaw string
		if err := rows.Scan(
			&child.ID,
			&child.Name.FirstName,
			&child.Name.MiddleName,
			&child.Name.LastName,
			&child.DateOfBirth,
			&interestsRaw,
			&medicalRaw,
		); err != nil {
			return nil, err
		}
		child.Interests = unmarshalStringList(interestsRaw)
		child.MedicalConsiderations = unmarshalStringList(medicalRaw)
		children = append(children, child)
	}
	return children, rows.Err()
}

func (s *PostgresStore) refreshChildrenCount(ctx context.Context, userID string) error {
	_, err := s.db.Exec(
		ctx,
		`UPDATE "UserProfile"
		 SET "childrenCount" = (SELECT COUNT(*) FROM "ChildProfile" WHERE "userId" = $1)
		 WHERE id = $1`,
		userID,
	)
	return err
}

func (s *PostgresStore) refreshCompletion(ctx context.Context, userID string) error {
	graph, err := s.GetProfile(ctx, userID)
	if err != nil {
		return err
	}
	status := CompletionOf(graph)
	_, err = s.db.Exec(
		ctx,
		`UPDATE "UserProfile" SET "profileComplete" = $2 WHERE id = $1`,
		userID,
		status.IsComplete,
	)
	return err
}

func marshalStringList(values []string) string {
	if values == nil {
		values = []string{}
	}
	encoded, err := json.Marshal(values)
	if err != nil {
		return "[]"
	}
	return string(encoded)
}

func unmarshalStringList(raw string) []string {
	if raw == "" {
		return []string{}
	}
	var values []string
	if err := json.Unmarshal([]byte(raw), &values); err != nil || values == nil {
		return []string{}
	}
	return values
}
