package version

// Version is the current duscan release.
const Version = "0.3.1"
