// Package opsaccess gives CLI commands one interface over the running daemon
// (via IPC) or, when no daemon is listening, the state database directly.
package opsaccess

import (
	"context"

	"moversync/internal/exclusions"
	"moversync/internal/ipc"
	"moversync/internal/moverlogs"
	"moversync/internal/operations"
	"moversync/internal/preflight"
	"moversync/internal/settings"
	"moversync/internal/state"
)

// Access provides moversync operations regardless of IPC or direct backing.
type Access interface {
	Remote() bool
	Status(ctx context.Context) (ipc.StatusResponse, error)
	Build(ctx context.Context, full bool) (operations.BuildResponse, error)
	ExclusionStats(ctx context.Context) (exclusions.Summary, error)
	Exclusions(ctx context.Context) (ipc.ExclusionsResponse, error)
	History(ctx context.Context, limit int) ([]state.BuildRun, error)
	MoverStats(ctx context.Context, trueRun bool) (*moverlogs.Stats, error)
	MoverLogs(ctx context.Context) ([]moverlogs.FileSet, error)
	Connections(ctx context.Context) ([]operations.ConnectionStatus, error)
	Tags(ctx context.Context, manager string) (operations.TagsResponse, error)
	SetTags(ctx context.Context, manager string, ids []int) (settings.Settings, error)
	Library(ctx context.Context, manager, query string) (operations.LibraryResponse, error)
	Settings(ctx context.Context) (settings.Settings, error)
	UpdateSettings(ctx context.Context, s settings.Settings) (settings.Settings, error)
	ResetSettings(ctx context.Context) (settings.Settings, error)
	AddFolders(ctx context.Context, folders []string) (settings.Settings, error)
	RemoveFolders(ctx context.Context, folders []string) (settings.Settings, error)
	Check(ctx context.Context) ([]preflight.Result, error)
}

// NewIPCAccess returns an Access backed by daemon IPC.
func NewIPCAccess(client *ipc.Client) Access {
	return &ipcAccess{client: client}
}

// NewDirectAccess returns an Access backed by an in-process operations service.
func NewDirectAccess(ops *operations.Service) Access {
	return &directAccess{ops: ops}
}

type ipcAccess struct {
	client *ipc.Client
}

func value[T any](resp *T, err error) (T, error) {
	if err != nil || resp == nil {
		var zero T
		return zero, err
	}
	return *resp, nil
}

func (a *ipcAccess) Remote() bool { return true }

func (a *ipcAccess) Status(context.Context) (ipc.StatusResponse, error) {
	return value(a.client.Status())
}

func (a *ipcAccess) Build(_ context.Context, full bool) (operations.BuildResponse, error) {
	return value(a.client.Build(full))
}

func (a *ipcAccess) ExclusionStats(context.Context) (exclusions.Summary, error) {
	return value(a.client.ExclusionStats())
}

func (a *ipcAccess) Exclusions(context.Context) (ipc.ExclusionsResponse, error) {
	return value(a.client.Exclusions())
}

func (a *ipcAccess) History(_ context.Context, limit int) ([]state.BuildRun, error) {
	resp, err := a.client.History(limit)
	if err != nil {
		return nil, err
	}
	return resp.Runs, nil
}

func (a *ipcAccess) MoverStats(_ context.Context, trueRun bool) (*moverlogs.Stats, error) {
	resp, err := a.client.MoverStats(trueRun)
	if err != nil {
		return nil, err
	}
	return resp.Stats, nil
}

func (a *ipcAccess) MoverLogs(context.Context) ([]moverlogs.FileSet, error) {
	resp, err := a.client.MoverLogs()
	if err != nil {
		return nil, err
	}
	return resp.Files, nil
}

func (a *ipcAccess) Connections(context.Context) ([]operations.ConnectionStatus, error) {
	resp, err := a.client.Connections()
	if err != nil {
		return nil, err
	}
	return resp.Connections, nil
}

func (a *ipcAccess) Tags(_ context.Context, manager string) (operations.TagsResponse, error) {
	return value(a.client.Tags(manager))
}

func (a *ipcAccess) SetTags(_ context.Context, manager string, ids []int) (settings.Settings, error) {
	return value(a.client.SetTags(manager, ids))
}

func (a *ipcAccess) Library(_ context.Context, manager, query string) (operations.LibraryResponse, error) {
	return value(a.client.Library(manager, query))
}

func (a *ipcAccess) Settings(context.Context) (settings.Settings, error) {
	return value(a.client.Settings())
}

func (a *ipcAccess) UpdateSettings(_ context.Context, s settings.Settings) (settings.Settings, error) {
	return value(a.client.UpdateSettings(s))
}

func (a *ipcAccess) ResetSettings(context.Context) (settings.Settings, error) {
	return value(a.client.ResetSettings())
}

func (a *ipcAccess) AddFolders(_ context.Context, folders []string) (settings.Settings, error) {
	return value(a.client.AddFolders(folders))
}

func (a *ipcAccess) RemoveFolders(_ context.Context, folders []string) (settings.Settings, error) {
	return value(a.client.RemoveFolders(folders))
}

func (a *ipcAccess) Check(context.Context) ([]preflight.Result, error) {
	resp, err := a.client.Check()
	if err != nil {
		return nil, err
	}
	return resp.Results, nil
}

type directAccess struct {
	ops *operations.Service
}

func (a *directAccess) Remote() bool { return false }

func (a *directAccess) Status(ctx context.Context) (ipc.StatusResponse, error) {
	status, err := a.ops.Status(ctx)
	return ipc.StatusResponse{Operations: status}, err
}

func (a *directAccess) Build(ctx context.Context, full bool) (operations.BuildResponse, error) {
	if full {
		return a.ops.RunFullSync(ctx), nil
	}
	return a.ops.RunExclusionBuild(ctx), nil
}

func (a *directAccess) ExclusionStats(ctx context.Context) (exclusions.Summary, error) {
	return a.ops.ExclusionStats(ctx), nil
}

func (a *directAccess) Exclusions(ctx context.Context) (ipc.ExclusionsResponse, error) {
	entries, err := a.ops.ExclusionEntries(ctx)
	return ipc.ExclusionsResponse{Path: a.ops.Config().Paths.ExclusionsFile, Entries: entries}, err
}

func (a *directAccess) History(ctx context.Context, limit int) ([]state.BuildRun, error) {
	return a.ops.BuildHistory(ctx, limit)
}

func (a *directAccess) MoverStats(ctx context.Context, trueRun bool) (*moverlogs.Stats, error) {
	if trueRun {
		return a.ops.LatestTrueRunStats(ctx), nil
	}
	return a.ops.LatestMoverStats(ctx), nil
}

func (a *directAccess) MoverLogs(ctx context.Context) ([]moverlogs.FileSet, error) {
	return a.ops.MoverLogIndex(ctx), nil
}

func (a *directAccess) Connections(ctx context.Context) ([]operations.ConnectionStatus, error) {
	return a.ops.TestConnections(ctx), nil
}

func (a *directAccess) Tags(ctx context.Context, manager string) (operations.TagsResponse, error) {
	return a.ops.Tags(ctx, manager)
}

func (a *directAccess) SetTags(ctx context.Context, manager string, ids []int) (settings.Settings, error) {
	return a.ops.SetTagFilter(ctx, manager, ids)
}

func (a *directAccess) Library(ctx context.Context, manager, query string) (operations.LibraryResponse, error) {
	return a.ops.Library(ctx, manager, query)
}

func (a *directAccess) Settings(ctx context.Context) (settings.Settings, error) {
	return a.ops.Settings().Get(ctx)
}

func (a *directAccess) UpdateSettings(ctx context.Context, s settings.Settings) (settings.Settings, error) {
	return a.ops.UpdateSettings(ctx, func(cur *settings.Settings) { *cur = s })
}

func (a *directAccess) ResetSettings(ctx context.Context) (settings.Settings, error) {
	if err := a.ops.Settings().Reset(ctx); err != nil {
		return settings.Settings{}, err
	}
	return a.ops.Settings().Get(ctx)
}

func (a *directAccess) AddFolders(ctx context.Context, folders []string) (settings.Settings, error) {
	return a.ops.AddFolders(ctx, folders...)
}

func (a *directAccess) RemoveFolders(ctx context.Context, folders []string) (settings.Settings, error) {
	return a.ops.RemoveFolders(ctx, folders...)
}

func (a *directAccess) Check(ctx context.Context) ([]preflight.Result, error) {
	return preflight.RunAll(ctx, a.ops.Config()), nil
}
