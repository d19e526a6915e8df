package domain

import "time"

// nowUTC is the package time source. Tests override it to make timestamp
// assertions deterministic; production code never touches it.
var nowUTC = func() time.Time { return time.Now().UTC() }
