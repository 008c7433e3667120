package app

// Version is stamped at build time with -ldflags "-X github.com/small-frappuccino/arctur/pkg/app.Version=...".
var Version = "dev"
