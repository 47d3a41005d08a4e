package ctl

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"nucleusd/pkg/types"
)

// Client talks to a nucleusd ops surface.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// NewClient normalizes addr into a base URL.
func NewClient(addr string) *Client {
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	return &Client{
		BaseURL: strings.TrimRight(addr, "/"),
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Ready reports whether /readyz answers 200.
func (c *Client) Ready() (bool, error) {
	resp, err := c.HTTP.Get(c.BaseURL + "/readyz")
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK, nil
}

// Status fetches the aggregated manager report.
func (c *Client) Status() (types.StatusReport, error) {
	var report types.StatusReport
	err := c.getJSON("/status", &report)
	return report, err
}

// Plugins fetches every discovered plugin.
func (c *Client) Plugins() ([]types.PluginInfo, error) {
	var body types.PluginsResponse
	if err := c.getJSON("/plugins", &body); err != nil {
		return nil, err
	}
	return body.Plugins, nil
}

// Plugin fetches one plugin by name.
func (c *Client) Plugin(name string) (types.PluginInfo, error) {
	var info types.PluginInfo
	err := c.getJSON("/plugins/"+name, &info)
	return info, err
}

// Tasks fetches every tracked task.
func (c *Client) Tasks() ([]types.TaskInfo, error) {
	var body types.TasksResponse
	if err := c.getJSON("/tasks", &body); err != nil {
		return nil, err
	}
	return body.Tasks, nil
}

func (c *Client) getJSON(path string, out any) error {
	resp, err := c.HTTP.Get(c.BaseURL + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		var e types.ErrorResponse
		if json.NewDecoder(resp.Body).Decode(&e) == nil && e.Error != "" {
			return fmt.Errorf("%s: %s", path, e.Error)
		}
		return fmt.Errorf("%s: unexpected status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
