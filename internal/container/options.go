package container

import "time"

// Options are the server settings. humacli also reads each one from a
// SERVICE_ prefixed environment variable, e.g. SERVICE_DATABASE_URL.
type Options struct {
	Port      int    `default:"8888"                  help:"Port to listen on"                                short:"p"`
	BaseURL   string `default:"http://localhost:8888" help:"Public URL used in short links and SMS messages"`
	LogFormat string `default:"console"               help:"Log format: console or json"`
	LogLevel  string `default:"info"                  help:"Log level: debug, info, warn, error"`

	Storage       string `default:"memory" help:"Storage backend: memory or postgres"`
	DatabaseURL   string `default:""       help:"Postgres connection string"`
	RedisAddr     string `default:""       help:"Redis address for the link cache, rate limits and events"  short:"r"`
	EventsBackend string `default:"memory" help:"Event backend: memory or redis"`
	CORSOrigins   string `default:""       help:"Comma separated origins allowed to call the admin API"`

	LinkRetentionDays         int    `default:"7"          help:"Days a short link stays resolvable"`
	AvailabilityRetentionDays int    `default:"30"         help:"Days an availability code stays valid"`
	SweepSchedule             string `default:"@every 24h" help:"Cron schedule of the expiry sweep"`
	TimeZone                  string `default:"UTC"        help:"Time zone of response log timestamps"`
	UpstreamTimeoutSeconds    int    `default:"10"         help:"Timeout of a single collaborator call"`

	TwilioAccountSID string  `default:"" help:"Twilio account SID"`
	TwilioAuthToken  string  `default:"" help:"Twilio auth token, also used to verify webhooks"`
	TwilioFrom       string  `default:"" help:"Twilio sending number"`
	SMSPerSecond     float64 `default:"1" help:"Outbound SMS rate"`

	AirtableAPIKey         string `default:""            help:"Airtable API key; the in-memory record store is used when empty"`
	AirtableBaseID         string `default:""            help:"Airtable base id"`
	AirtableEntityTable    string `default:"Engagements" help:"Airtable table holding jobs"`
	AirtableResponderTable string `default:"Techs"       help:"Airtable table holding technicians"`

	StripeSecretKey  string `default:"" help:"Stripe secret key"`
	StripeSuccessURL string `default:"" help:"Checkout success redirect"`
	StripeCancelURL  string `default:"" help:"Checkout cancel redirect"`

	CloudinaryCloudName string `default:"" help:"Cloudinary cloud name"`
	CloudinaryAPIKey    string `default:"" help:"Cloudinary API key"`
	CloudinaryAPISecret string `default:"" help:"Cloudinary API secret"`

	AdminPhone        string `default:"" help:"Phone that receives availability summaries"`
	AdminPasswordHash string `default:"" help:"bcrypt hash of the operator password; login is disabled when empty"`
	SessionSecret     string `default:"" help:"HMAC secret for operator sessions; random per process when empty"`
	SessionTTLHours   int    `default:"12" help:"Operator session lifetime"`
}

func (o *Options) linkRetention() time.Duration {
	return time.Duration(o.LinkRetentionDays) * 24 * time.Hour
}

func (o *Options) availabilityRetention() time.Duration {
	return time.Duration(o.AvailabilityRetentionDays) * 24 * time.Hour
}

func (o *Options) upstreamTimeout() time.Duration {
	return time.Duration(o.UpstreamTimeoutSeconds) * time.Second
}

func (o *Options) sessionTTL() time.Duration {
	return time.Duration(o.SessionTTLHours) * time.Hour
}
