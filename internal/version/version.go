package version

// Version is the current version of nflsync.
// Can be overridden at build time with -ldflags "-X ...version.Version=..."
var Version = "1.4.0"

// Name is the application name.
const Name = "nflsync"

// Description is a short description of the application.
const Description = "NFL statistics ingestion from BallDontLie into Supabase"
