// Package fetch retrieves an archive of one dependency at a concrete treeish.
//
// [Fetcher.Fetch] resolves the specifier against the repository's ref set
// (version ranges become the highest matching tag, anything else is used as
// written) and hands the treeish to the backend chosen by the repository's
// kind:
//
//   - [HostedBackend] downloads a tarball from the GitHub API
//   - [GitBackend] clones with git (shallow when the treeish is a known
//     branch or tag) and runs git archive
//
// Archives of immutable treeishes (tags and commit hashes) are kept in an
// optional cross-run [cache.Cache].
//
// The caller owns the returned [Result] and must call [Result.Cleanup] once
// the archive has been unpacked.
package fetch
