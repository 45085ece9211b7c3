package hdb

import "context"

// RemoteSource mirrors repositories from a hosting platform into a local
// directory and reports the mirrored files as scan targets.
type RemoteSource interface {
	Download(ctx context.Context, ids []string, root string, recursive bool) Resolution
}

// ArchiveResolver asks the public content archive whether it holds a content identifier.
// It never fails: errors collapse into ArchiveUnresolved.
type ArchiveResolver interface {
	Resolve(ctx context.Context, identifier string) ArchiveStatus
}

// NopArchiveResolver leaves every lookup unresolved.
type NopArchiveResolver struct{}

func (NopArchiveResolver) Resolve(context.Context, string) ArchiveStatus { return ArchiveUnresolved }

// Recorder observes scan progress, typically for metrics.
type Recorder interface {
	FileScanned()
	FileFailed()
	HashComputed(function string)
	HashFailed(function string)
	ArchiveResolved(status ArchiveStatus)
}

// NopRecorder discards all observations.
type NopRecorder struct{}

func (NopRecorder) FileScanned()                  {}
func (NopRecorder) FileFailed()                   {}
func (NopRecorder) HashComputed(string)           {}
func (NopRecorder) HashFailed(string)             {}
func (NopRecorder) ArchiveResolved(ArchiveStatus) {}
