package carepath

// Version of the module. Release builds override it with -ldflags "-X github.com/aretw0/carepath.Version=...".
var Version = "0.1.0-dev"
