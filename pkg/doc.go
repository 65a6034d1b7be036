// Package pkg provides the libraries behind gitdeps, a resolver and installer
// for source dependencies that live in git repositories.
//
// # Overview
//
// A project declares dependencies as "repository -> specifier" pairs. The
// specifier is a semantic version range, a branch, a tag or a commit. gitdeps
// resolves each specifier to a concrete treeish, decides whether the copy
// already on disk is stale, and fetches and unpacks the right tree otherwise.
//
// # Architecture
//
// The data flow of one install run:
//
//	[manifest] (package.json, gitdeps.toml, gitdeps.yaml)
//	     ↓
//	[repo] (canonical URL, backend kind, destination)
//	     ↓
//	[pipeline] (metadata → staleness → fetch → unpack → metadata)
//	     ↓                    ↓
//	[refs] + [version]     [fetch] → [unpack]
//	     ↓                    ↓
//	[integrations/github] or [gitcli]
//
// Supporting packages: [cache] (cross-run archive cache), [metadata] (the
// .gitdeps.json file of each destination), [errors] (coded errors),
// [httputil] (retry), [observability] (event hooks) and [buildinfo].
package pkg
