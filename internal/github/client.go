package gh

import "context"

// Client exposes the GitHub operations the publish workflow uses to verify a
// delegated credential grant: confirming who the credential authenticates as
// and that the target repository is visible to it.
type Client interface {
	AuthenticatedUser(ctx context.Context) (string, error)
	RepoVisible(ctx context.Context, owner, repo string) (bool, error)
}

// Factory builds concrete GitHub clients (e.g., REST-backed) for a token.
type Factory interface {
	New(ctx context.Context, token string) (Client, error)
}
