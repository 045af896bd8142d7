package platform

// Tables holds the device heuristics used where a platform offers no runtime API: iOS pixel densities,
// iOS status bar heights, and Android OS-version buckets for the browser chrome height.
// All matching is by lower-case substring. A Tables value is built once and never mutated; callers
// that need different data construct their own value and inject it.
type Tables struct {
	// iPhone models rendered at 3×; checked first so that “iphone 6 plus” wins over “iphone 6”.
	IPhone3x []string
	// Older compact iPhones rendered at 2×.
	IPhone2x []string
	// Original-generation iPhones rendered at 1×.
	IPhone1x []string
	// iPhone model numbers above this are assumed to be newer than the table, and therefore 3×.
	IPhoneFutureModel int
	// iPod touch generations with a retina (2×) display; all others are 1×.
	IPod2x []string

	// Pro iPads with a 24pt status bar; both substrings of a pair must match.
	IPadProStatusBar24 [][2]string
	// iPhones with a Dynamic Island (54pt status bar).
	DynamicIsland []string
	// iPhones with a notch (47pt status bar).
	Notch []string
	// Substrings that disqualify a device from the notch set even if one of [Tables.Notch] matches.
	NotchExclusions []string

	// Android major versions whose browser chrome is the taller “new” layout.
	AndroidNewVersions []string
	// Android major versions with the older, shorter chrome layout.
	AndroidOldVersions []string
}

const (
	DefaultIOSStatusBar      = 20
	IPadProStatusBar         = 24
	DynamicIslandStatusBar   = 54
	NotchStatusBar           = 47
	AndroidNewChromeBar      = 80
	AndroidOldChromeBar      = 76
	AndroidToolbarHeight     = 56
	defaultIPhoneFutureModel = 16
)

// DefaultTables returns the built-in device tables.
func DefaultTables() Tables {
	return Tables{
		// The plain “iphone x” is deliberately absent: it would also match the 2× XR, and
		// anything unmatched falls through to 3× anyway.
		IPhone3x: []string{
			"plus", "pro", "max", "mini", "iphone xs",
			"iphone 12", "iphone 13", "iphone 14", "iphone 15", "iphone 16",
		},
		IPhone2x: []string{
			"iphone xr", "iphone 11", "iphone se",
			"iphone 8", "iphone 7", "iphone 6s", "iphone 6",
			"iphone 5s", "iphone 5c", "iphone 5", "iphone 4s", "iphone 4",
		},
		IPhone1x: []string{
			"iphone 3gs", "iphone 3g", "iphone 2g", "iphone (1st generation)",
		},
		IPhoneFutureModel: defaultIPhoneFutureModel,
		IPod2x: []string{
			"4th generation", "5th generation", "6th generation", "7th generation",
			"touch 4", "touch 5", "touch 6", "touch 7",
		},

		IPadProStatusBar24: [][2]string{
			{"ipad pro", "2018"},
			{"ipad pro", "2020"},
			{"ipad pro", "2021"},
			{"ipad pro", "2022"},
			{"ipad pro", "2024"},
			{"ipad pro", "3rd generation"},
			{"ipad pro", "4th generation"},
			{"ipad pro", "5th generation"},
			{"ipad pro", "6th generation"},
			{"ipad pro", "m4"},
		},
		DynamicIsland: []string{
			"iphone 14 pro", "iphone 15", "iphone 16",
		},
		Notch: []string{
			"iphone x", "iphone 11", "iphone 12", "iphone 13", "iphone 14",
		},
		NotchExclusions: []string{"14 pro"},

		AndroidNewVersions: []string{"11", "12", "13", "14", "15", "16"},
		AndroidOldVersions: []string{"7", "8", "9", "10"},
	}
}
