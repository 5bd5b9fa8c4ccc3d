package registry

import (
	"testing"

	"github.com/coreloop/qhttpd/internal/datapath"
)

func TestListeningSnapshotIsIndependent(t *testing.T) {
	r := New()
	r.AddListening(datapath.QD(1))
	snap := r.Listening()
	r.AddListening(datapath.QD(2))
	if len(snap) != 1 {
		t.Fatalf("snapshot mutated by later AddListening: %v", snap)
	}
	if len(r.Listening()) != 2 {
		t.Fatalf("expected 2 listening descriptors, got %d", len(r.Listening()))
	}
}

func TestComputeHandlesPublishedOnce(t *testing.T) {
	r := New()
	if r.NumComputeWorkers() != 0 {
		t.Fatal("expected empty registry to report zero compute workers")
	}
	handles := []ComputeHandle{
		{InputQD: 10, OutputQD: 11, ThreadID: 0},
		{InputQD: 20, OutputQD: 21, ThreadID: 1},
	}
	r.SetComputeHandles(handles)
	if r.NumComputeWorkers() != 2 {
		t.Fatalf("expected 2 compute workers, got %d", r.NumComputeWorkers())
	}
	got := r.ComputeHandles()
	if got[0].InputQD != 10 || got[1].OutputQD != 21 {
		t.Fatalf("unexpected handle table: %+v", got)
	}
}
