// Package integrations provides HTTP clients for repository hosting APIs.
//
// # Overview
//
// The hosted-API backend of gitdeps talks to a hosting provider for two
// things only: listing a repository's refs and downloading a tarball of one
// treeish. Provider-specific clients live in subpackages:
//
//   - [github]: GitHub REST API (refs listing, tarball redirects)
//
// # Shared Infrastructure
//
// [Client] wraps net/http with the behaviour every provider client needs:
//
//   - default headers on every request (User-Agent, Accept)
//   - status mapping to [ErrNotFound], [ErrConflict] and [ErrNetwork]
//   - optional retry of transient failures via [httputil.Policy]
//   - Link header pagination ([NextPage])
//   - redirect inspection without following ([Client.Redirect])
package integrations
