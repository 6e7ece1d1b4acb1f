package application

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestUserService_CreateUser(t *testing.T) {
	admin := Principal{UserID: "root", Role: RoleAdmin}

	t.Run("requires the manage_users capability", func(t *testing.T) {
		svc := NewUserService(&userRepoStub{}, sequenceIDs("user"), fixedNow)

		for _, role := range []Role{RoleMember, RoleApprover} {
			_, err := svc.CreateUser(context.Background(), CreateUserParams{
				Principal: Principal{UserID: "u", Role: role},
				Input:     UserInput{Username: "bob", Password: "pw", DisplayName: "Bob", Role: RoleMember},
			})
			if !errors.Is(err, ErrForbidden) {
				t.Errorf("role %s: expected ErrForbidden, got %v", role, err)
			}
		}
	})

	t.Run("admin creates a user with a hashed password", func(t *testing.T) {
		repo := &userRepoStub{}
		svc := NewUserService(repo, sequenceIDs("user"), fixedNow)

		user, err := svc.CreateUser(context.Background(), CreateUserParams{
			Principal: admin,
			Input:     UserInput{Username: "bob", Password: "pw", DisplayName: "Bob", Role: RoleApprover},
		})
		if err != nil {
			t.Fatalf("CreateUser failed: %v", err)
		}
		if user.Role != RoleApprover {
			t.Errorf("role = %q, want approver", user.Role)
		}

		stored, err := repo.GetUserByUsername(context.Background(), "bob")
		if err != nil {
			t.Fatalf("stored user missing: %v", err)
		}
		if !strings.HasPrefix(stored.PasswordHash, "$argon2id$") {
			t.Errorf("password hash not argon2id: %q", stored.PasswordHash)
		}
		if err := VerifyPassword(stored.PasswordHash, "pw"); err != nil {
			t.Errorf("stored hash does not verify: %v", err)
		}
	})

	t.Run("invalid input fails validation", func(t *testing.T) {
		svc := NewUserService(&userRepoStub{}, sequenceIDs("user"), fixedNow)

		_, err := svc.CreateUser(context.Background(), CreateUserParams{
			Principal: admin,
			Input:     UserInput{Username: "", Password: "", DisplayName: "", Role: Role("boss")},
		})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		for _, field := range []string{"username", "password", "display_name", "role"} {
			if _, ok := vErr.FieldErrors[field]; !ok {
				t.Errorf("expected field error for %s", field)
			}
		}
	})

	t.Run("duplicate username maps to conflict", func(t *testing.T) {
		repo := &userRepoStub{}
		svc := NewUserService(repo, sequenceIDs("user"), fixedNow)
		ctx := context.Background()

		input := UserInput{Username: "bob", Password: "pw", DisplayName: "Bob", Role: RoleMember}
		if _, err := svc.CreateUser(ctx, CreateUserParams{Principal: admin, Input: input}); err != nil {
			t.Fatalf("first CreateUser failed: %v", err)
		}
		if _, err := svc.CreateUser(ctx, CreateUserParams{Principal: admin, Input: input}); !errors.Is(err, ErrConflict) {
			t.Fatalf("expected ErrConflict, got %v", err)
		}
	})
}

func TestUserService_ListUsers(t *testing.T) {
	repo := &userRepoStub{users: map[string]StoredUser{
		"u1": {User: User{ID: "u1", Username: "alice", Role: RoleMember}, PasswordHash: "h"},
	}}
	svc := NewUserService(repo, sequenceIDs("user"), fixedNow)

	t.Run("member is forbidden", func(t *testing.T) {
		_, err := svc.ListUsers(context.Background(), Principal{UserID: "u1", Role: RoleMember})
		if !errors.Is(err, ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
	})

	t.Run("admin lists accounts without hashes", func(t *testing.T) {
		users, err := svc.ListUsers(context.Background(), Principal{UserID: "root", Role: RoleAdmin})
		if err != nil {
			t.Fatalf("ListUsers failed: %v", err)
		}
		if len(users) != 1 || users[0].Username != "alice" {
			t.Errorf("unexpected users: %+v", users)
		}
	})
}

func TestAuditService_ListDecisions(t *testing.T) {
	store := auditStoreStub{decisions: []AuditDecision{{ID: "d1", Outcome: OutcomeApproved}}}
	svc := NewAuditService(store)

	t.Run("member is forbidden", func(t *testing.T) {
		_, err := svc.ListDecisions(context.Background(), Principal{UserID: "u", Role: RoleMember})
		if !errors.Is(err, ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
	})

	t.Run("approver reads the ledger", func(t *testing.T) {
		decisions, err := svc.ListDecisions(context.Background(), Principal{UserID: "boss", Role: RoleApprover})
		if err != nil {
			t.Fatalf("ListDecisions failed: %v", err)
		}
		if len(decisions) != 1 || decisions[0].ID != "d1" {
			t.Errorf("unexpected decisions: %+v", decisions)
		}
	})
}

type auditStoreStub struct {
	decisions []AuditDecision
	err       error
}

func (s auditStoreStub) ListDecisions(ctx context.Context) ([]AuditDecision, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.decisions, nil
}
