package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		// Closing the rpc client closes conn as well.
		return c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func call[Resp any](c *Client, method string, req any) (*Resp, error) {
	var resp Resp
	if err := c.client.Call(ServiceName+"."+method, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	return call[StatusResponse](c, "Status", StatusRequest{})
}

// Build rebuilds the exclusion file; full refreshes manager caches first.
func (c *Client) Build(full bool) (*BuildResponse, error) {
	return call[BuildResponse](c, "Build", BuildRequest{Full: full})
}

// ExclusionStats summarizes the exclusion file.
func (c *Client) ExclusionStats() (*Summary, error) {
	return call[Summary](c, "ExclusionStats", ExclusionStatsRequest{})
}

// Exclusions lists the exclusion file entries.
func (c *Client) Exclusions() (*ExclusionsResponse, error) {
	return call[ExclusionsResponse](c, "Exclusions", ExclusionsRequest{})
}

// History lists recent build runs.
func (c *Client) History(limit int) (*HistoryResponse, error) {
	return call[HistoryResponse](c, "History", HistoryRequest{Limit: limit})
}

// MoverStats returns the latest mover run statistics.
func (c *Client) MoverStats(trueRun bool) (*MoverStatsResponse, error) {
	return call[MoverStatsResponse](c, "MoverStats", MoverStatsRequest{TrueRun: trueRun})
}

// MoverLogs lists the mover run files.
func (c *Client) MoverLogs() (*MoverLogsResponse, error) {
	return call[MoverLogsResponse](c, "MoverLogs", MoverLogsRequest{})
}

// Connections checks every library manager.
func (c *Client) Connections() (*ConnectionsResponse, error) {
	return call[ConnectionsResponse](c, "Connections", ConnectionsRequest{})
}

// Tags lists a manager's tags.
func (c *Client) Tags(manager string) (*TagsResponse, error) {
	return call[TagsResponse](c, "Tags", TagsRequest{Manager: manager})
}

// SetTags replaces a manager's tag filter.
func (c *Client) SetTags(manager string, ids []int) (*Settings, error) {
	return call[Settings](c, "SetTags", SetTagsRequest{Manager: manager, IDs: ids})
}

// Library lists a manager's library filtered by title.
func (c *Client) Library(manager, query string) (*LibraryResponse, error) {
	return call[LibraryResponse](c, "Library", LibraryRequest{Manager: manager, Query: query})
}

// Settings returns the effective settings.
func (c *Client) Settings() (*Settings, error) {
	return call[Settings](c, "Settings", SettingsRequest{})
}

// UpdateSettings replaces the effective settings.
func (c *Client) UpdateSettings(s Settings) (*Settings, error) {
	return call[Settings](c, "UpdateSettings", UpdateSettingsRequest{Settings: s})
}

// ResetSettings drops every runtime override.
func (c *Client) ResetSettings() (*Settings, error) {
	return call[Settings](c, "ResetSettings", ResetSettingsRequest{})
}

// AddFolders adds manual exclusion folders.
func (c *Client) AddFolders(folders []string) (*Settings, error) {
	return call[Settings](c, "AddFolders", FoldersRequest{Folders: folders})
}

// RemoveFolders removes manual exclusion folders.
func (c *Client) RemoveFolders(folders []string) (*Settings, error) {
	return call[Settings](c, "RemoveFolders", FoldersRequest{Folders: folders})
}

// Check runs the preflight checks inside the daemon.
func (c *Client) Check() (*CheckResponse, error) {
	return call[CheckResponse](c, "Check", CheckRequest{})
}

// LogTail returns log lines from the daemon.
func (c *Client) LogTail(req LogTailRequest) (*LogTailResponse, error) {
	return call[LogTailResponse](c, "LogTail", req)
}
