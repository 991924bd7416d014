package buffer

import (
	"context"
	"net/url"
	"strings"
)

// UpdatesQuery pages through pending or sent updates.
type UpdatesQuery struct {
	Page  int   `url:"page,omitempty"`
	Count int   `url:"count,omitempty"`
	Since int64 `url:"since,omitempty"`
	UTC   bool  `url:"utc,omitempty"`
}

// Schedule is one posting schedule of a profile.
type Schedule struct {
	Days  []string `json:"days"`
	Times []string `json:"times"`
}

// Media attaches a link or picture to an update.
type Media struct {
	Link        string `url:"link,omitempty"`
	Description string `url:"description,omitempty"`
	Title       string `url:"title,omitempty"`
	Picture     string `url:"picture,omitempty"`
	Thumbnail   string `url:"thumbnail,omitempty"`
	Photo       string `url:"photo,omitempty"`
}

// ReorderParams sets the order in which a profile's pending updates are sent.
type ReorderParams struct {
	Order  []string `url:"order,brackets"`
	Offset int      `url:"offset,omitempty"`
	UTC    bool     `url:"utc,omitempty"`
}

type ShuffleParams struct {
	Count int  `url:"count,omitempty"`
	UTC   bool `url:"utc,omitempty"`
}

// CreateUpdateParams creates a status update for one or more profiles.
type CreateUpdateParams struct {
	ProfileIDs  []string `url:"profile_ids,brackets"`
	Text        string   `url:"text,omitempty"`
	Shorten     *bool    `url:"shorten,omitempty"`
	Now         bool     `url:"now,omitempty"`
	Top         bool     `url:"top,omitempty"`
	Attachment  *bool    `url:"attachment,omitempty"`
	ScheduledAt string   `url:"scheduled_at,omitempty"`
	Media       *Media   `url:"media,omitempty"`
}

type EditUpdateParams struct {
	Text        string `url:"text"`
	Now         bool   `url:"now,omitempty"`
	UTC         bool   `url:"utc,omitempty"`
	ScheduledAt string `url:"scheduled_at,omitempty"`
	Media       *Media `url:"media,omitempty"`
}

// resourcePath fills the single :id placeholder of pattern.
func resourcePath(pattern, id string) string {
	return strings.Replace(pattern, placeholderPrefix+"id", url.PathEscape(id), 1)
}

func (c *Client) User(ctx context.Context) (*Response, error) {
	return c.Call(ctx, PathUser, nil)
}

func (c *Client) Deauthorize(ctx context.Context) (*Response, error) {
	return c.Call(ctx, PathUserDeauthorize, nil)
}

func (c *Client) Profiles(ctx context.Context) (*Response, error) {
	return c.Call(ctx, PathProfiles, nil)
}

func (c *Client) Profile(ctx context.Context, id string) (*Response, error) {
	return c.Call(ctx, resourcePath(PathProfile, id), nil)
}

func (c *Client) ProfileSchedules(ctx context.Context, id string) (*Response, error) {
	return c.Call(ctx, resourcePath(PathProfileSchedules, id), nil)
}

// UpdateProfileSchedules replaces the posting schedules of a profile. Schedules
// are sent as schedules[i][days][]= and schedules[i][times][]=.
func (c *Client) UpdateProfileSchedules(ctx context.Context, id string, schedules []Schedule) (*Response, error) {
	list := make([]any, 0, len(schedules))
	for _, s := range schedules {
		list = append(list, map[string]any{"days": s.Days, "times": s.Times})
	}
	return c.Call(ctx, resourcePath(PathProfileSchedulesUpdate, id), Params{"schedules": list})
}

func (c *Client) PendingUpdates(ctx context.Context, id string, q *UpdatesQuery) (*Response, error) {
	return c.Call(ctx, resourcePath(PathProfileUpdatesPending, id), q)
}

func (c *Client) SentUpdates(ctx context.Context, id string, q *UpdatesQuery) (*Response, error) {
	return c.Call(ctx, resourcePath(PathProfileUpdatesSent, id), q)
}

func (c *Client) ReorderUpdates(ctx context.Context, id string, p ReorderParams) (*Response, error) {
	return c.Call(ctx, resourcePath(PathProfileUpdatesReorder, id), p)
}

func (c *Client) ShuffleUpdates(ctx context.Context, id string, p ShuffleParams) (*Response, error) {
	return c.Call(ctx, resourcePath(PathProfileUpdatesShuffle, id), p)
}

func (c *Client) Update(ctx context.Context, id string) (*Response, error) {
	return c.Call(ctx, resourcePath(PathUpdate, id), nil)
}

func (c *Client) CreateUpdate(ctx context.Context, p CreateUpdateParams) (*Response, error) {
	return c.Call(ctx, PathUpdateCreate, p)
}

func (c *Client) EditUpdate(ctx context.Context, id string, p EditUpdateParams) (*Response, error) {
	return c.Call(ctx, resourcePath(PathUpdateEdit, id), p)
}

func (c *Client) DestroyUpdate(ctx context.Context, id string) (*Response, error) {
	return c.Call(ctx, resourcePath(PathUpdateDestroy, id), nil)
}

// ShareUpdate sends a pending update immediately.
func (c *Client) ShareUpdate(ctx context.Context, id string) (*Response, error) {
	return c.Call(ctx, resourcePath(PathUpdateShare, id), nil)
}

func (c *Client) MoveUpdateToTop(ctx context.Context, id string) (*Response, error) {
	return c.Call(ctx, resourcePath(PathUpdateMoveToTop, id), nil)
}

// LinkShares returns how often link has been shared through Buffer.
func (c *Client) LinkShares(ctx context.Context, link string) (*Response, error) {
	return c.Call(ctx, PathLinkShares, Params{"url": link})
}

func (c *Client) Configuration(ctx context.Context) (*Response, error) {
	return c.Call(ctx, PathInfoConfiguration, nil)
}
