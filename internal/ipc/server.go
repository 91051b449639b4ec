package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"
	"time"

	"moversync/internal/daemon"
	"moversync/internal/logging"
	"moversync/internal/logs"
	"moversync/internal/operations"
	"moversync/internal/preflight"
	"moversync/internal/services"
	"moversync/internal/settings"
)

// ServiceName is the RPC receiver name registered by the server.
const ServiceName = "MoverSync"

const maxFollowWait = 30 * time.Second

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "ipc")

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logger, ctx: serverCtx}
	if err := rpcServer.RegisterName(ServiceName, srv); err != nil {
		cancel()
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	return &Server{
		path:      path,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				if errors.Is(err, net.ErrClosed) {
					return
				}
				logging.WarnWithContext(s.logger, "accept failed", "ipc_accept_failed",
					logging.Error(err),
					logging.String("impact", "CLI commands fall back to direct state access"),
				)
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		logging.WarnWithContext(s.logger, "failed to remove socket", "ipc_socket_cleanup_failed",
			logging.String("socket", s.path),
			logging.Error(err),
		)
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

// request annotates the server context for one call.
func (s *service) request() context.Context {
	ctx, _ := services.EnsureRequestID(s.ctx)
	return services.WithTrigger(ctx, services.TriggerIPC)
}

func (s *service) ops() *operations.Service {
	return s.daemon.Operations()
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	opsStatus, err := s.ops().Status(s.request())
	if err != nil {
		return err
	}
	resp.Daemon = s.daemon.Status()
	resp.Operations = opsStatus
	return nil
}

func (s *service) Build(req BuildRequest, resp *BuildResponse) error {
	ctx := s.request()
	logging.WithContext(ctx, s.logger).Debug("build requested", logging.Bool("full", req.Full))
	if req.Full {
		*resp = s.ops().RunFullSync(ctx)
	} else {
		*resp = s.ops().RunExclusionBuild(ctx)
	}
	return nil
}

func (s *service) ExclusionStats(_ ExclusionStatsRequest, resp *Summary) error {
	*resp = s.ops().ExclusionStats(s.request())
	return nil
}

func (s *service) Exclusions(_ ExclusionsRequest, resp *ExclusionsResponse) error {
	entries, err := s.ops().ExclusionEntries(s.request())
	if err != nil {
		return err
	}
	resp.Path = s.ops().Config().Paths.ExclusionsFile
	resp.Entries = entries
	return nil
}

func (s *service) History(req HistoryRequest, resp *HistoryResponse) error {
	runs, err := s.ops().BuildHistory(s.request(), req.Limit)
	if err != nil {
		return err
	}
	resp.Runs = runs
	return nil
}

func (s *service) MoverStats(req MoverStatsRequest, resp *MoverStatsResponse) error {
	if req.TrueRun {
		resp.Stats = s.ops().LatestTrueRunStats(s.request())
	} else {
		resp.Stats = s.ops().LatestMoverStats(s.request())
	}
	return nil
}

func (s *service) MoverLogs(_ MoverLogsRequest, resp *MoverLogsResponse) error {
	resp.Files = s.ops().MoverLogIndex(s.request())
	return nil
}

func (s *service) Connections(_ ConnectionsRequest, resp *ConnectionsResponse) error {
	resp.Connections = s.ops().TestConnections(s.request())
	return nil
}

func (s *service) Tags(req TagsRequest, resp *TagsResponse) error {
	tags, err := s.ops().Tags(s.request(), req.Manager)
	if err != nil {
		return err
	}
	*resp = tags
	return nil
}

func (s *service) SetTags(req SetTagsRequest, resp *Settings) error {
	snapshot, err := s.ops().SetTagFilter(s.request(), req.Manager, req.IDs)
	if err != nil {
		return err
	}
	*resp = snapshot
	return nil
}

func (s *service) Library(req LibraryRequest, resp *LibraryResponse) error {
	library, err := s.ops().Library(s.request(), req.Manager, req.Query)
	if err != nil {
		return err
	}
	*resp = library
	return nil
}

func (s *service) Settings(_ SettingsRequest, resp *Settings) error {
	snapshot, err := s.ops().Settings().Get(s.request())
	if err != nil {
		return err
	}
	*resp = snapshot
	return nil
}

func (s *service) UpdateSettings(req UpdateSettingsRequest, resp *Settings) error {
	snapshot, err := s.daemon.UpdateSettings(s.request(), func(cur *settings.Settings) { *cur = req.Settings })
	if err != nil {
		return err
	}
	*resp = snapshot
	return nil
}

func (s *service) ResetSettings(_ ResetSettingsRequest, resp *Settings) error {
	snapshot, err := s.daemon.ResetSettings(s.request())
	if err != nil {
		return err
	}
	*resp = snapshot
	return nil
}

func (s *service) AddFolders(req FoldersRequest, resp *Settings) error {
	snapshot, err := s.ops().AddFolders(s.request(), req.Folders...)
	if err != nil {
		return err
	}
	*resp = snapshot
	return nil
}

func (s *service) RemoveFolders(req FoldersRequest, resp *Settings) error {
	snapshot, err := s.ops().RemoveFolders(s.request(), req.Folders...)
	if err != nil {
		return err
	}
	*resp = snapshot
	return nil
}

func (s *service) Check(_ CheckRequest, resp *CheckResponse) error {
	resp.Results = preflight.RunAll(s.request(), s.ops().Config())
	return nil
}

func (s *service) LogTail(req LogTailRequest, resp *LogTailResponse) error {
	logPath := s.daemon.LogPath()
	if logPath == "" {
		resp.Offset = 0
		return nil
	}
	wait := time.Duration(req.WaitMillis) * time.Millisecond
	if wait <= 0 && req.Follow {
		wait = time.Second
	}
	wait = min(wait, maxFollowWait)
	options := logs.TailOptions{
		Offset: req.Offset,
		Limit:  req.Limit,
		Follow: req.Follow,
		Wait:   wait,
		Filter: logs.Filter{Level: req.Level, Component: req.Component, Search: req.Search},
	}
	ctx := s.ctx
	if req.Follow && wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(s.ctx, wait+500*time.Millisecond)
		defer cancel()
	}
	result, err := logs.Tail(ctx, logPath, options)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			resp.Offset = result.Offset
			return nil
		}
		return err
	}
	resp.Lines = result.Lines
	resp.Offset = result.Offset
	return nil
}
