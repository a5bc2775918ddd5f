package credcore

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestEmailConfirmationLifecycle(t *testing.T) {
	e, store, _ := newTestEngine(t)
	ctx := context.Background()

	id := mustCreate(t, e, "alice@example.com", "correct horse 1")
	if store.raw(t, id).EmailConfirmed {
		t.Fatal("new account must start unconfirmed")
	}

	tok, err := e.IssueToken(ctx, id, PurposeEmailConfirmation, "")
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	if err := e.ConfirmEmail(ctx, id, tok); err != nil {
		t.Fatalf("ConfirmEmail: %v", err)
	}
	if !store.raw(t, id).EmailConfirmed {
		t.Fatal("account not confirmed")
	}
	if v := e.MetricsSnapshot().Counters[MetricEmailConfirmed]; v != 1 {
		t.Fatalf("confirmed counter = %d, want 1", v)
	}
}

func TestConfirmEmailIdempotentWhenConfirmed(t *testing.T) {
	e, store, _ := newTestEngine(t)
	ctx := context.Background()

	id := mustCreate(t, e, "alice@example.com", "correct horse 1")
	tok, _ := e.IssueToken(ctx, id, PurposeEmailConfirmation, "")
	if err := e.ConfirmEmail(ctx, id, tok); err != nil {
		t.Fatalf("ConfirmEmail: %v", err)
	}

	stamp := store.raw(t, id).SecurityStamp

	// Any token, even garbage, succeeds once the address is confirmed.
	if err := e.ConfirmEmail(ctx, id, "garbage"); err != nil {
		t.Fatalf("repeat ConfirmEmail: %v", err)
	}
	if store.raw(t, id).SecurityStamp != stamp {
		t.Fatal("idempotent confirm must not rotate the stamp")
	}
	if v := e.MetricsSnapshot().Counters[MetricEmailConfirmed]; v != 1 {
		t.Fatalf("confirmed counter = %d, want 1", v)
	}
}

func TestConfirmEmailRejectsReusedToken(t *testing.T) {
	e, store, _ := newTestEngine(t)
	ctx := context.Background()

	id := mustCreate(t, e, "alice@example.com", "correct horse 1")
	tok, _ := e.IssueToken(ctx, id, PurposeEmailConfirmation, "")
	if err := e.ConfirmEmail(ctx, id, tok); err != nil {
		t.Fatalf("ConfirmEmail: %v", err)
	}

	// Un-confirm directly: the stamp rotated on confirm, so the old token
	// must no longer validate.
	acct, _ := store.FindByID(ctx, id)
	acct.EmailConfirmed = false
	if err := store.Update(ctx, acct); err != nil {
		t.Fatalf("seed Update: %v", err)
	}

	if err := e.ConfirmEmail(ctx, id, tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("reused token err = %v, want ErrInvalidToken", err)
	}
}

func TestConfirmEmailRejectsWrongPurposeAndAccount(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()

	alice := mustCreate(t, e, "alice@example.com", "correct horse 1")
	bob := mustCreate(t, e, "bob@example.com", "correct horse 1")

	reset, err := e.IssueToken(ctx, alice, PurposePasswordReset, "")
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	if err := e.ConfirmEmail(ctx, alice, reset); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("reset token confirming email err = %v, want ErrInvalidToken", err)
	}

	confirm, err := e.IssueToken(ctx, alice, PurposeEmailConfirmation, "")
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	if err := e.ConfirmEmail(ctx, bob, confirm); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("token for alice confirming bob err = %v, want ErrInvalidToken", err)
	}
}

func TestConfirmEmailExpiredToken(t *testing.T) {
	e, _, clock := newTestEngine(t)
	ctx := context.Background()

	id := mustCreate(t, e, "alice@example.com", "correct horse 1")
	tok, _ := e.IssueToken(ctx, id, PurposeEmailConfirmation, "")

	clock.Advance(24*time.Hour + time.Minute)

	if err := e.ConfirmEmail(ctx, id, tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expired token err = %v, want ErrInvalidToken", err)
	}
}

func TestEmailChangeFlow(t *testing.T) {
	e, store, _ := newTestEngine(t)
	ctx := context.Background()

	id := mustCreate(t, e, "alice@example.com", "correct horse 1")

	tok, err := e.RequestEmailChange(ctx, id, "alice@new.example.com")
	if err != nil {
		t.Fatalf("RequestEmailChange: %v", err)
	}
	if tok == "" {
		t.Fatal("RequestEmailChange returned empty token")
	}

	if err := e.ApplyEmailChange(ctx, id, tok, "alice@new.example.com"); err != nil {
		t.Fatalf("ApplyEmailChange: %v", err)
	}

	after := store.raw(t, id)
	if after.Email != "alice@new.example.com" || after.UserName != "alice@new.example.com" {
		t.Fatalf("address not applied: %+v", after)
	}

	// Lookups follow the new address; the old one is free again.
	if _, err := e.ValidateCredentials(ctx, "alice@new.example.com", "correct horse 1"); err != nil {
		t.Fatalf("ValidateCredentials(new): %v", err)
	}
	if _, err := e.ValidateCredentials(ctx, "alice@example.com", "correct horse 1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("ValidateCredentials(old) err = %v, want ErrInvalidCredentials", err)
	}
	if _, err := e.CreateAccount(ctx, "alice@example.com", "correct horse 1"); err != nil {
		t.Fatalf("re-registering freed address: %v", err)
	}
}

func TestEmailChangeViaIssueToken(t *testing.T) {
	e, store, _ := newTestEngine(t)
	ctx := context.Background()

	id := mustCreate(t, e, "alice@example.com", "correct horse 1")

	// The public issue path must interoperate with ApplyEmailChange the
	// same way RequestEmailChange does, casing included.
	tok, err := e.IssueToken(ctx, id, PurposeEmailChange, "Alice@New.example.com")
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	if err := e.ApplyEmailChange(ctx, id, tok, "alice@new.example.com"); err != nil {
		t.Fatalf("ApplyEmailChange with the same address the token was issued for: %v", err)
	}
	if got := store.raw(t, id).Email; got != "alice@new.example.com" {
		t.Fatalf("Email = %q, want alice@new.example.com", got)
	}

	tok, err = e.IssueToken(ctx, id, PurposeEmailChange, "not-an-email")
	if !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("IssueToken(bad address) = (%q, %v), want ErrInvalidEmail", tok, err)
	}
}

func TestApplyEmailChangeNoOpKeepsStampAndMetrics(t *testing.T) {
	e, store, _ := newTestEngine(t)
	ctx := context.Background()

	id := mustCreate(t, e, "alice@example.com", "correct horse 1")
	stampBefore := store.raw(t, id).SecurityStamp

	// A token for the address the account already holds applies as a no-op.
	tok, err := e.IssueToken(ctx, id, PurposeEmailChange, "alice@example.com")
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	if err := e.ApplyEmailChange(ctx, id, tok, "alice@example.com"); err != nil {
		t.Fatalf("no-op ApplyEmailChange: %v", err)
	}

	if store.raw(t, id).SecurityStamp != stampBefore {
		t.Fatal("no-op apply must not rotate the stamp")
	}
	if v := e.MetricsSnapshot().Counters[MetricEmailChangeApplied]; v != 0 {
		t.Fatalf("applied counter = %d, want 0 for no-op", v)
	}
}

func TestEmailChangeNoOpForSameAddress(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()

	id := mustCreate(t, e, "alice@example.com", "correct horse 1")

	tok, err := e.RequestEmailChange(ctx, id, "ALICE@example.com")
	if err != nil {
		t.Fatalf("RequestEmailChange: %v", err)
	}
	if tok != "" {
		t.Fatalf("same-address change returned token %q, want empty", tok)
	}
}

func TestEmailChangeTokenBoundToAddress(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()

	id := mustCreate(t, e, "alice@example.com", "correct horse 1")

	tok, err := e.RequestEmailChange(ctx, id, "alice@new.example.com")
	if err != nil {
		t.Fatalf("RequestEmailChange: %v", err)
	}

	err = e.ApplyEmailChange(ctx, id, tok, "attacker@example.com")
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("mismatched address err = %v, want ErrInvalidToken", err)
	}
}

func TestEmailChangeRejectsTakenAddress(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()

	alice := mustCreate(t, e, "alice@example.com", "correct horse 1")
	mustCreate(t, e, "bob@example.com", "correct horse 1")

	tok, err := e.RequestEmailChange(ctx, alice, "bob@example.com")
	if err != nil {
		t.Fatalf("RequestEmailChange: %v", err)
	}

	err = e.ApplyEmailChange(ctx, alice, tok, "bob@example.com")
	if !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("taken address err = %v, want ErrDuplicateEmail", err)
	}
}

func TestEmailChangeInvalidatedByStampRotation(t *testing.T) {
	e, _, clock := newTestEngine(t)
	ctx := context.Background()

	id := mustCreate(t, e, "alice@example.com", "correct horse 1")

	tok, err := e.RequestEmailChange(ctx, id, "alice@new.example.com")
	if err != nil {
		t.Fatalf("RequestEmailChange: %v", err)
	}

	if err := e.InvalidateTokens(ctx, id); err != nil {
		t.Fatalf("InvalidateTokens: %v", err)
	}

	if err := e.ApplyEmailChange(ctx, id, tok, "alice@new.example.com"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("post-rotation err = %v, want ErrInvalidToken", err)
	}

	// A fresh token still works inside its one-hour window.
	tok, err = e.RequestEmailChange(ctx, id, "alice@new.example.com")
	if err != nil {
		t.Fatalf("second RequestEmailChange: %v", err)
	}
	clock.Advance(59 * time.Minute)
	if err := e.ApplyEmailChange(ctx, id, tok, "alice@new.example.com"); err != nil {
		t.Fatalf("ApplyEmailChange inside window: %v", err)
	}
}
