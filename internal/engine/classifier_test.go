package engine

import (
	"testing"

	"github.com/talkbase/wadash/internal/domain"
)

func classifierSettings() SecuritySettings {
	s := DefaultSecuritySettings()
	s.SpamThreshold = 3
	s.AutoBlockEnabled = true
	return s
}

func TestClassifierAutoBlockAtThreshold(t *testing.T) {
	t.Parallel()
	users := newFakeUsers()
	c := NewUserClassifier(staticSettings(classifierSettings()), users)

	var blocked []string
	c.OnAutoBlock(func(u *domain.WaUser) { blocked = append(blocked, u.Phone) })

	c.RecordOutcome("628100", OutcomeError, "timeout")
	c.RecordOutcome("628100", OutcomeError, "timeout")
	if u := users.get("628100"); u.IsBlocked {
		t.Fatal("user blocked below threshold")
	}

	c.RecordOutcome("628100", OutcomeError, "timeout")
	u := users.get("628100")
	if !u.IsBlocked {
		t.Fatal("user not blocked at threshold")
	}
	if u.Classification != domain.ClassSpam {
		t.Fatalf("Classification = %q, want %q", u.Classification, domain.ClassSpam)
	}
	if u.BlockReason != "auto_block" {
		t.Fatalf("BlockReason = %q, want auto_block", u.BlockReason)
	}
	if len(blocked) != 1 || blocked[0] != "628100" {
		t.Fatalf("auto-block hook fired %d times, want once for 628100", len(blocked))
	}

	// further errors do not re-fire the hook
	c.RecordOutcome("628100", OutcomeError, "timeout")
	if len(blocked) != 1 {
		t.Fatalf("hook fired again on already blocked user: %d", len(blocked))
	}
}

func TestClassifierSafeModeTightensThreshold(t *testing.T) {
	t.Parallel()
	s := classifierSettings()
	s.SpamThreshold = 5
	s.SafeModeEnabled = true
	s.SafeModeFactor = 0.5

	if got := s.EffectiveSpamThreshold(); got != 3 {
		t.Fatalf("EffectiveSpamThreshold = %d, want 3", got)
	}

	users := newFakeUsers()
	c := NewUserClassifier(staticSettings(s), users)
	for i := 0; i < 3; i++ {
		c.RecordOutcome("628200", OutcomeError, "timeout")
	}
	if u := users.get("628200"); !u.IsBlocked {
		t.Fatal("safe mode did not block at the tightened threshold")
	}
}

func TestClassifierAutoBlockDisabled(t *testing.T) {
	t.Parallel()
	s := classifierSettings()
	s.AutoBlockEnabled = false

	users := newFakeUsers()
	c := NewUserClassifier(staticSettings(s), users)
	for i := 0; i < 10; i++ {
		c.RecordOutcome("628300", OutcomeError, "timeout")
	}
	u := users.get("628300")
	if u.IsBlocked {
		t.Fatal("user blocked with auto-block disabled")
	}
	if u.ErrorCount != 10 {
		t.Fatalf("ErrorCount = %d, want 10", u.ErrorCount)
	}
}

func TestClassifierSuccessCounters(t *testing.T) {
	t.Parallel()
	users := newFakeUsers()
	c := NewUserClassifier(staticSettings(classifierSettings()), users)

	c.RecordOutcome("628400", OutcomeSuccess, "")
	c.RecordOutcome("628400", OutcomeSuccess, "")
	u := users.get("628400")
	if u.TotalSent != 2 || u.MessagesToday != 2 {
		t.Fatalf("TotalSent = %d, MessagesToday = %d, want 2/2", u.TotalSent, u.MessagesToday)
	}
	if u.ErrorCount != 0 {
		t.Fatalf("ErrorCount = %d, want 0", u.ErrorCount)
	}
}

func TestClassifierUnblockResetsCounters(t *testing.T) {
	t.Parallel()
	users := newFakeUsers()
	c := NewUserClassifier(staticSettings(classifierSettings()), users)

	for i := 0; i < 3; i++ {
		c.RecordOutcome("628500", OutcomeError, "timeout")
	}
	if u := users.get("628500"); !u.IsBlocked {
		t.Fatal("setup: user not blocked")
	}

	if err := c.Unblock("628500"); err != nil {
		t.Fatalf("Unblock: %v", err)
	}
	u := users.get("628500")
	if u.IsBlocked || u.ErrorCount != 0 || u.LastError != "" {
		t.Fatalf("unblock did not reset state: %+v", u)
	}
	if u.Classification != domain.ClassNormal {
		t.Fatalf("Classification = %q, want %q after unblock", u.Classification, domain.ClassNormal)
	}
}

func TestClassifierExplicitClassify(t *testing.T) {
	t.Parallel()
	users := newFakeUsers()
	c := NewUserClassifier(staticSettings(classifierSettings()), users)

	if err := c.Classify("628600", domain.ClassTest); err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if u := users.get("628600"); u.Classification != domain.ClassTest {
		t.Fatalf("Classification = %q, want %q", u.Classification, domain.ClassTest)
	}
}
