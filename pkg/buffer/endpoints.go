package buffer

import "net/http"

// Endpoint patterns of the Buffer API.
const (
	PathUser                   = "/user"
	PathUserDeauthorize        = "/user/deauthorize"
	PathProfiles               = "/profiles"
	PathProfileSchedulesUpdate = "/profiles/:id/schedules/update"
	PathProfileUpdatesReorder  = "/profiles/:id/updates/reorder"
	PathProfileUpdatesShuffle  = "/profiles/:id/updates/shuffle"
	PathProfileUpdatesPending  = "/profiles/:id/updates/pending"
	PathProfileUpdatesSent     = "/profiles/:id/updates/sent"
	PathProfileSchedules       = "/profiles/:id/schedules"
	PathProfile                = "/profiles/:id"
	PathUpdateEdit             = "/updates/:id/update"
	PathUpdateCreate           = "/updates/create"
	PathUpdateDestroy          = "/updates/:id/destroy"
	PathUpdateShare            = "/updates/:id/share"
	PathUpdateMoveToTop        = "/updates/:id/move_to_top"
	PathUpdate                 = "/updates/:id"
	PathLinkShares             = "/links/shares"
	PathInfoConfiguration      = "/info/configuration"
)

// defaultEndpoints is the public Buffer API surface. Order is significant:
// when a path fits several patterns the first one listed wins.
var defaultEndpoints = []Endpoint{
	{Pattern: PathUser, Method: http.MethodGet, Description: "Returns a single user."},
	{Pattern: PathUserDeauthorize, Method: http.MethodPost, Description: "Deauthorize your client for the user."},

	{Pattern: PathProfiles, Method: http.MethodGet, Description: "Returns the social media profiles connected to a user's account."},
	{Pattern: PathProfileSchedulesUpdate, Method: http.MethodPost, Description: "Set the posting schedules for a profile."},
	{Pattern: PathProfileUpdatesReorder, Method: http.MethodPost, Description: "Edit the order in which a profile's updates are sent from the buffer."},
	{Pattern: PathProfileUpdatesShuffle, Method: http.MethodPost, Description: "Randomize the order in which a profile's updates are sent from the buffer."},
	{Pattern: PathProfileUpdatesPending, Method: http.MethodGet, Description: "Returns the updates currently in the buffer for a profile."},
	{Pattern: PathProfileUpdatesSent, Method: http.MethodGet, Description: "Returns the updates already sent from the buffer for a profile."},
	{Pattern: PathProfileSchedules, Method: http.MethodGet, Description: "Returns the posting schedules of a profile."},
	{Pattern: PathProfile, Method: http.MethodGet, Description: "Returns a single profile."},

	{Pattern: PathUpdateEdit, Method: http.MethodPost, Description: "Edit an existing status update."},
	{Pattern: PathUpdateCreate, Method: http.MethodPost, Description: "Create a status update for one or more profiles."},
	{Pattern: PathUpdateDestroy, Method: http.MethodPost, Description: "Permanently delete a status update."},
	{Pattern: PathUpdateShare, Method: http.MethodPost, Description: "Share a pending update immediately and recalculate the queue."},
	{Pattern: PathUpdateMoveToTop, Method: http.MethodPost, Description: "Move an update to the top of the queue and recalculate times."},
	{Pattern: PathUpdate, Method: http.MethodGet, Description: "Returns a single status update."},

	{Pattern: PathLinkShares, Method: http.MethodGet, Description: "Returns the number of shares a link has had using Buffer."},

	{Pattern: PathInfoConfiguration, Method: http.MethodGet, Description: "Returns supported services, their icons, and character and schedule limits."},
}

var defaultRegistry = MustNewRegistry(defaultEndpoints...)

// DefaultRegistry returns the Buffer API endpoint table.
func DefaultRegistry() *Registry {
	return defaultRegistry
}
