package services

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestMustNew_KnownHolders(t *testing.T) {
	d := Deps{
		NoteRepo:        &fakeNoteRepo{},
		PatientInfoRepo: storeRepos{},
		Scheduler:       &fakeScheduler{},
		Log:             zerolog.Nop(),
	}

	notes := MustNew[*NotesService](d)
	t.Cleanup(notes.Close)
	if notes.Repo == nil {
		t.Fatal("notes repo not wired")
	}

	meds := MustNew[*MedicationService](d)
	if meds.sched == nil {
		t.Fatal("scheduler not wired")
	}
}

func TestMustNew_UnknownHolderPanics(t *testing.T) {
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic")
		}
		if msg, _ := r.(string); !strings.Contains(msg, "unknown view-state holder") {
			t.Fatalf("panic = %v", r)
		}
	}()
	_ = MustNew[*strings.Builder](Deps{})
}
