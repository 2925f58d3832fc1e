package analysis

// Report lists, per artist, the clusters its top tracks fall into.
type Report struct {
	TotalClusters int                `yaml:"total_clusters"`
	Artists       []ArtistMembership `yaml:"artists"`
}

type ArtistMembership struct {
	Artist   string `yaml:"artist"`
	Tracks   int    `yaml:"tracks"`
	Clusters []int  `yaml:"clusters"`
}

// ClusterSummary describes one fitted cluster in feature units.
type ClusterSummary struct {
	Label     int                `yaml:"label"`
	Size      int                `yaml:"size"`
	Center    map[string]float64 `yaml:"center"`
	Scaled    []float64          `yaml:"scaled_center"`
	Artists   []string           `yaml:"artists"`
	TopTracks []string           `yaml:"top_tracks,omitempty"`
}
