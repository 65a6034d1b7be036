// Package github provides an HTTP client for the GitHub REST API.
//
// # Overview
//
// gitdeps uses two endpoints:
//
//   - GET /repos/{owner}/{repo}/git/refs lists branches and tags ([Client.Refs])
//   - GET /repos/{owner}/{repo}/tarball/{ref} redirects to a tarball of one
//     treeish ([Client.Tarball])
//
// Downloading a tarball is far cheaper than cloning, which is why hosted
// repositories skip git entirely.
//
// # Usage
//
//	client := github.NewClient(github.Options{UserAgent: "gitdeps/1.0.0"})
//
//	refs, err := client.Refs(ctx, "acme", "widgets")
//	if err != nil {
//	    return err
//	}
//
//	path, err := client.Tarball(ctx, "acme", "widgets", "v1.3.5", tmpDir)
//
// # Rate limits
//
// Requests are unauthenticated and limited to 60 per hour by GitHub. The
// install pipeline fetches one dependency at a time to stay well inside
// that budget.
package github
