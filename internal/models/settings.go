package models

// BrandingSettings is the singleton settings/branding document.
type BrandingSettings struct {
	SiteName      string  `bson:"siteName" json:"site_name" binding:"required"`
	Copyright     string  `bson:"copyright" json:"copyright" binding:"required"`
	Developer     string  `bson:"developer" json:"developer" binding:"required"`
	DeveloperWeb  string  `bson:"developerWeb" json:"developer_web" binding:"omitempty,url"`
	MarkerOpacity float64 `bson:"markerOpacity" json:"marker_opacity" binding:"min=0,max=1"`
}

// TimingSettings is the singleton settings/timings document. Edit and delete
// times are seconds; a value of 0 disables the action. The GPS query timeout
// is milliseconds.
type TimingSettings struct {
	EditMessageTime   int `bson:"editMessageTime" json:"edit_message_time" binding:"min=0"`
	DeleteMessageTime int `bson:"deleteMessageTime" json:"delete_message_time" binding:"min=0"`
	GPSInactiveTime   int `bson:"gpsInactiveTime" json:"gps_inactive_time" binding:"required,min=1"`
	GPSQueryTimeout   int `bson:"gpsQueryTimeout" json:"gps_query_timeout" binding:"required,min=1000"`
}

// DefaultBranding returns the documented branding defaults, written on first
// read when the document is absent.
func DefaultBranding() BrandingSettings {
	return BrandingSettings{
		SiteName:      "GeoFriends",
		Copyright:     "© 2024 GeoFriends. Todos los derechos reservados.",
		Developer:     "El Equipo de GeoFriends",
		DeveloperWeb:  "",
		MarkerOpacity: 1,
	}
}

// DefaultTimings returns the documented timing defaults.
func DefaultTimings() TimingSettings {
	return TimingSettings{
		EditMessageTime:   0,
		DeleteMessageTime: 0,
		GPSInactiveTime:   60,
		GPSQueryTimeout:   10000,
	}
}
