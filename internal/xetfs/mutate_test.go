package xetfs_test

import (
	"context"
	"errors"
	"testing"

	"xetgo/internal/backend"
	"xetgo/internal/testutil"
	"xetgo/internal/xetfs"
)

func TestService_Move(t *testing.T) {
	ctx := context.Background()

	t.Run("renames within one backend", func(t *testing.T) {
		m := backend.NewMemory("mem")
		writeFile(t, m, "a.txt", "one")

		s := newService(t, nil, map[string]xetfs.Backend{"mem": m})
		if err := s.Move(ctx, "mem://a.txt", "mem://b.txt", "", false); err != nil {
			t.Fatalf("Move() error = %v", err)
		}

		if got := readFile(t, m, "b.txt"); got != "one" {
			t.Errorf("b.txt = %q, want %q", got, "one")
		}
		mustNotExist(t, m, "a.txt")
	})

	t.Run("rejects cross-backend moves", func(t *testing.T) {
		src := backend.NewMemory("mem")
		dst := backend.NewMemory("out")
		writeFile(t, src, "a.txt", "one")

		s := newService(t, nil, map[string]xetfs.Backend{"mem": src, "out": dst})
		err := s.Move(ctx, "mem://a.txt", "out://a.txt", "", false)
		if !errors.Is(err, xetfs.ErrCrossBackendMove) {
			t.Fatalf("Move() error = %v, want ErrCrossBackendMove", err)
		}

		// Nothing moved.
		if got := readFile(t, src, "a.txt"); got != "one" {
			t.Errorf("a.txt = %q, want %q", got, "one")
		}
		mustNotExist(t, dst, "a.txt")
	})

	t.Run("brackets transactional moves", func(t *testing.T) {
		fx := testutil.NewFakeXet()
		fx.AddBranch("u", "r", "main")
		writeFile(t, fx, "u/r/main/a.txt", "one")

		s := newService(t, nil, map[string]xetfs.Backend{"xet": fx})
		if err := s.Move(ctx, "xet://u/r/main/a.txt", "xet://u/r/main/b.txt", "", false); err != nil {
			t.Fatalf("Move() error = %v", err)
		}

		want := "move xet://u/r/main/a.txt to xet://u/r/main/b.txt"
		if len(fx.Begun) != 1 || fx.Begun[0] != want {
			t.Errorf("transactions begun = %v, want exactly [%s]", fx.Begun, want)
		}
		if fx.Ended != 1 {
			t.Errorf("transactions ended = %d, want 1", fx.Ended)
		}
		if got := readFile(t, fx, "u/r/main/b.txt"); got != "one" {
			t.Errorf("b.txt = %q, want %q", got, "one")
		}
	})

	t.Run("ends the transaction when the move fails", func(t *testing.T) {
		fx := testutil.NewFakeXet()

		s := newService(t, nil, map[string]xetfs.Backend{"xet": fx})
		if err := s.Move(ctx, "xet://u/r/main/missing.txt", "xet://u/r/main/b.txt", "", false); err == nil {
			t.Fatal("Move() succeeded, want error for missing source")
		}

		if fx.Ended != 1 {
			t.Errorf("transactions ended = %d, want 1", fx.Ended)
		}
		if fx.InTransaction() {
			t.Error("transaction left open after failure")
		}
	})
}

func TestService_Remove(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes multiple paths", func(t *testing.T) {
		m := backend.NewMemory("mem")
		writeFile(t, m, "a.txt", "one")
		writeFile(t, m, "b.txt", "two")

		s := newService(t, nil, map[string]xetfs.Backend{"mem": m})
		if err := s.Remove(ctx, []string{"mem://a.txt", "mem://b.txt"}, ""); err != nil {
			t.Fatalf("Remove() error = %v", err)
		}

		mustNotExist(t, m, "a.txt")
		mustNotExist(t, m, "b.txt")
	})

	t.Run("no paths is a no-op", func(t *testing.T) {
		s := newService(t, nil, nil)
		if err := s.Remove(ctx, nil, ""); err != nil {
			t.Fatalf("Remove() error = %v", err)
		}
	})

	t.Run("rejects mixed backends", func(t *testing.T) {
		a := backend.NewMemory("mem")
		b := backend.NewMemory("out")
		writeFile(t, a, "a.txt", "one")
		writeFile(t, b, "b.txt", "two")

		s := newService(t, nil, map[string]xetfs.Backend{"mem": a, "out": b})
		if err := s.Remove(ctx, []string{"mem://a.txt", "out://b.txt"}, ""); err == nil {
			t.Fatal("Remove() succeeded, want mixed-backend error")
		}

		// Nothing deleted.
		readFile(t, a, "a.txt")
		readFile(t, b, "b.txt")
	})

	t.Run("refuses branch roots", func(t *testing.T) {
		fx := testutil.NewFakeXet()
		fx.AddBranch("u", "r", "main")
		writeFile(t, fx, "u/r/main/f.txt", "one")

		s := newService(t, nil, map[string]xetfs.Backend{"xet": fx})
		err := s.Remove(ctx, []string{"xet://u/r/main"}, "")
		if !errors.Is(err, xetfs.ErrBranchDelete) {
			t.Fatalf("Remove() error = %v, want ErrBranchDelete", err)
		}

		if len(fx.Begun) != 0 {
			t.Errorf("transactions begun = %v, want none", fx.Begun)
		}
		readFile(t, fx, "u/r/main/f.txt")
	})

	t.Run("one transaction covers all deletions", func(t *testing.T) {
		fx := testutil.NewFakeXet()
		fx.AddBranch("u", "r", "main")
		writeFile(t, fx, "u/r/main/a.txt", "one")
		writeFile(t, fx, "u/r/main/b.txt", "two")

		s := newService(t, nil, map[string]xetfs.Backend{"xet": fx})
		uris := []string{"xet://u/r/main/a.txt", "xet://u/r/main/b.txt"}
		if err := s.Remove(ctx, uris, "cleanup"); err != nil {
			t.Fatalf("Remove() error = %v", err)
		}

		if len(fx.Begun) != 1 || fx.Begun[0] != "cleanup" {
			t.Errorf("transactions begun = %v, want exactly [cleanup]", fx.Begun)
		}
		if fx.Ended != 1 {
			t.Errorf("transactions ended = %d, want 1", fx.Ended)
		}
		mustNotExist(t, fx, "u/r/main/a.txt")
		mustNotExist(t, fx, "u/r/main/b.txt")
	})
}

func TestService_Duplicate(t *testing.T) {
	ctx := context.Background()

	t.Run("derives default destination from current user", func(t *testing.T) {
		fx := testutil.NewFakeXet()

		s := newService(t, nil, map[string]xetfs.Backend{"xet": fx})
		dest, err := s.Duplicate(ctx, "xet://someone/dataset", "", false, false)
		if err != nil {
			t.Fatalf("Duplicate() error = %v", err)
		}

		if dest != "xet://tester/dataset" {
			t.Errorf("dest = %q, want %q", dest, "xet://tester/dataset")
		}
		want := [2]string{"someone/dataset", "tester/dataset"}
		if len(fx.Duplicated) != 1 || fx.Duplicated[0] != want {
			t.Errorf("Duplicated = %v, want exactly [%v]", fx.Duplicated, want)
		}
		if len(fx.Attributes) != 0 {
			t.Errorf("Attributes = %v, want none", fx.Attributes)
		}
	})

	t.Run("explicit destination", func(t *testing.T) {
		fx := testutil.NewFakeXet()

		s := newService(t, nil, map[string]xetfs.Backend{"xet": fx})
		dest, err := s.Duplicate(ctx, "xet://someone/dataset", "xet://tester/copy", false, false)
		if err != nil {
			t.Fatalf("Duplicate() error = %v", err)
		}

		if dest != "xet://tester/copy" {
			t.Errorf("dest = %q, want %q", dest, "xet://tester/copy")
		}
	})

	t.Run("private flag adjusts visibility", func(t *testing.T) {
		fx := testutil.NewFakeXet()

		s := newService(t, nil, map[string]xetfs.Backend{"xet": fx})
		if _, err := s.Duplicate(ctx, "xet://someone/dataset", "", true, false); err != nil {
			t.Fatalf("Duplicate() error = %v", err)
		}

		v, ok := fx.Attributes["tester/dataset#private"]
		if !ok || !v {
			t.Errorf("Attributes = %v, want private=true on tester/dataset", fx.Attributes)
		}
	})

	t.Run("public flag clears the private attribute", func(t *testing.T) {
		fx := testutil.NewFakeXet()

		s := newService(t, nil, map[string]xetfs.Backend{"xet": fx})
		if _, err := s.Duplicate(ctx, "xet://someone/dataset", "", false, true); err != nil {
			t.Fatalf("Duplicate() error = %v", err)
		}

		v, ok := fx.Attributes["tester/dataset#private"]
		if !ok || v {
			t.Errorf("Attributes = %v, want private=false on tester/dataset", fx.Attributes)
		}
	})

	t.Run("visibility failure does not fail the duplication", func(t *testing.T) {
		fx := testutil.NewFakeXet()
		fx.FailAttr = errors.New("forbidden")

		logger := testutil.NewRecordingLogger()
		s := newService(t, logger, map[string]xetfs.Backend{"xet": fx})
		dest, err := s.Duplicate(ctx, "xet://someone/dataset", "", true, false)
		if err != nil {
			t.Fatalf("Duplicate() error = %v", err)
		}

		if dest != "xet://tester/dataset" {
			t.Errorf("dest = %q, want %q", dest, "xet://tester/dataset")
		}
		if !logger.Contains("ERROR", "settings") {
			t.Error("expected the settings URL to be reported")
		}
	})

	t.Run("requires a content-addressed source", func(t *testing.T) {
		m := backend.NewMemory("mem")

		s := newService(t, nil, map[string]xetfs.Backend{"mem": m})
		if _, err := s.Duplicate(ctx, "mem://someone/dataset", "", false, false); err == nil {
			t.Fatal("Duplicate() succeeded, want error for plain backend")
		}
	})
}
