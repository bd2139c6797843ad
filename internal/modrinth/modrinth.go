// Package modrinth is a typed client for the Modrinth mod catalog: search,
// project/version lookup, compatibility filtering, single-mod install, and
// `.mrpack` modpack installation.
package modrinth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/russross/blackfriday"

	"github.com/quasar/launchercore/internal/corerr"
	"github.com/quasar/launchercore/internal/fetch"
	"github.com/quasar/launchercore/internal/mcversion"
)

const (
	baseURL   = "https://api.modrinth.com/v2"
	userAgent = "launchercore/1.0.0 (github.com/quasar/launchercore)"
)

// Client handles Modrinth API interactions.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
	}
}

// NewClientWithHTTP builds a Client against a custom base URL and HTTP
// client, for callers (tests, mainly) that need to point at something
// other than the real Modrinth API.
func NewClientWithHTTP(base string, httpClient *http.Client) *Client {
	return &Client{httpClient: httpClient, baseURL: base}
}

type Project struct {
	ID           string   `json:"id"`
	Slug         string   `json:"slug"`
	ProjectType  string   `json:"project_type"`
	Team         string   `json:"team"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Body         string   `json:"body"`
	Categories   []string `json:"categories"`
	ClientSide   string   `json:"client_side"`
	ServerSide   string   `json:"server_side"`
	Downloads    int      `json:"downloads"`
	Followers    int      `json:"followers"`
	IconURL      string   `json:"icon_url"`
	Published    string   `json:"published"`
	Updated      string   `json:"updated"`
	License      License  `json:"license"`
	Versions     []string `json:"versions"`
	GameVersions []string `json:"game_versions"`
	Loaders      []string `json:"loaders"`
}

// BodyHTML renders the project's markdown body/description as HTML.
func (p Project) BodyHTML() string {
	return string(blackfriday.MarkdownCommon([]byte(p.Body)))
}

type License struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

type ProjectVersion struct {
	ID            string        `json:"id"`
	ProjectID     string        `json:"project_id"`
	Name          string        `json:"name"`
	VersionNumber string        `json:"version_number"`
	Changelog     string        `json:"changelog"`
	Dependencies  []Dependency  `json:"dependencies"`
	GameVersions  []string      `json:"game_versions"`
	VersionType   string        `json:"version_type"`
	Loaders       []string      `json:"loaders"`
	Featured      bool          `json:"featured"`
	Files         []VersionFile `json:"files"`
	DatePublished time.Time     `json:"date_published"`
	Downloads     int           `json:"downloads"`
}

type Dependency struct {
	VersionID      string `json:"version_id"`
	ProjectID      string `json:"project_id"`
	FileName       string `json:"file_name"`
	DependencyType string `json:"dependency_type"`
}

type VersionFile struct {
	Hashes   FileHashes `json:"hashes"`
	URL      string     `json:"url"`
	Filename string     `json:"filename"`
	Primary  bool       `json:"primary"`
	Size     int64      `json:"size"`
	FileType string     `json:"file_type"`
}

type FileHashes struct {
	SHA1   string `json:"sha1"`
	SHA512 string `json:"sha512"`
}

// PrimaryFile returns the file flagged primary, or the only file if there
// is just one, per §4.7.
func (v ProjectVersion) PrimaryFile() (VersionFile, bool) {
	if len(v.Files) == 1 {
		return v.Files[0], true
	}
	for _, f := range v.Files {
		if f.Primary {
			return f, true
		}
	}
	return VersionFile{}, false
}

type SearchResult struct {
	Hits      []SearchHit `json:"hits"`
	Offset    int         `json:"offset"`
	Limit     int         `json:"limit"`
	TotalHits int         `json:"total_hits"`
}

type SearchHit struct {
	ProjectID     string   `json:"project_id"`
	ProjectType   string   `json:"project_type"`
	Slug          string   `json:"slug"`
	Author        string   `json:"author"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Categories    []string `json:"categories"`
	Versions      []string `json:"versions"`
	Downloads     int      `json:"downloads"`
	Follows       int      `json:"follows"`
	IconURL       string   `json:"icon_url"`
	DateCreated   string   `json:"date_created"`
	DateModified  string   `json:"date_modified"`
	LatestVersion string   `json:"latest_version"`
	License       string   `json:"license"`
	ClientSide    string   `json:"client_side"`
	ServerSide    string   `json:"server_side"`
}

type SearchOptions struct {
	Query       string
	Facets      [][]string
	Index       string
	Offset      int
	Limit       int
	Loaders     []string
	GameVersion string
	ProjectType string
}

func (c *Client) Search(ctx context.Context, opts SearchOptions) (*SearchResult, error) {
	params := url.Values{}
	if opts.Query != "" {
		params.Set("query", opts.Query)
	}
	if opts.Index != "" {
		params.Set("index", opts.Index)
	}
	if opts.Offset > 0 {
		params.Set("offset", fmt.Sprintf("%d", opts.Offset))
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}
	params.Set("limit", fmt.Sprintf("%d", limit))

	var facets [][]string
	if len(opts.Loaders) > 0 {
		loaderFacets := make([]string, len(opts.Loaders))
		for i, l := range opts.Loaders {
			loaderFacets[i] = "categories:" + l
		}
		facets = append(facets, loaderFacets)
	}
	if opts.GameVersion != "" {
		facets = append(facets, []string{"versions:" + opts.GameVersion})
	}
	if opts.ProjectType != "" {
		facets = append(facets, []string{"project_type:" + opts.ProjectType})
	}
	facets = append(facets, opts.Facets...)
	if len(facets) > 0 {
		facetJSON, _ := json.Marshal(facets)
		params.Set("facets", string(facetJSON))
	}

	var result SearchResult
	err := c.get(ctx, fmt.Sprintf("%s/search?%s", c.baseURL, params.Encode()), &result)
	return &result, err
}

func (c *Client) GetProject(ctx context.Context, idOrSlug string) (*Project, error) {
	var project Project
	err := c.get(ctx, fmt.Sprintf("%s/project/%s", c.baseURL, url.PathEscape(idOrSlug)), &project)
	if err != nil {
		return nil, err
	}
	return &project, nil
}

func (c *Client) GetProjectVersions(ctx context.Context, projectID string, loaders, gameVersions []string) ([]ProjectVersion, error) {
	params := url.Values{}
	if len(loaders) > 0 {
		b, _ := json.Marshal(loaders)
		params.Set("loaders", string(b))
	}
	if len(gameVersions) > 0 {
		b, _ := json.Marshal(gameVersions)
		params.Set("game_versions", string(b))
	}
	reqURL := fmt.Sprintf("%s/project/%s/version", c.baseURL, url.PathEscape(projectID))
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	var versions []ProjectVersion
	err := c.get(ctx, reqURL, &versions)
	return versions, err
}

func (c *Client) GetVersion(ctx context.Context, versionID string) (*ProjectVersion, error) {
	var version ProjectVersion
	err := c.get(ctx, fmt.Sprintf("%s/version/%s", c.baseURL, url.PathEscape(versionID)), &version)
	if err != nil {
		return nil, err
	}
	return &version, nil
}

// GetVersionFromHash looks up the project version that produced a file
// with the given hash, using Modrinth's version_file lookup. Update
// checking tries it first for every mod jar, before falling back to the
// jar's embedded mod ID.
func (c *Client) GetVersionFromHash(ctx context.Context, hash, algorithm string) (*ProjectVersion, error) {
	if algorithm == "" {
		algorithm = "sha1"
	}
	var version ProjectVersion
	err := c.get(ctx, fmt.Sprintf("%s/version_file/%s?algorithm=%s", c.baseURL, url.PathEscape(hash), algorithm), &version)
	if err != nil {
		return nil, err
	}
	return &version, nil
}

func (c *Client) get(ctx context.Context, reqURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return corerr.Wrap(corerr.Internal, "building request", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return corerr.Wrap(corerr.Cancelled, "request cancelled", ctx.Err())
		}
		return corerr.Wrap(corerr.Network, "contacting modrinth", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return corerr.New(corerr.NotFound, "not found on modrinth")
	}
	if resp.StatusCode != http.StatusOK {
		return corerr.New(corerr.Network, fmt.Sprintf("unexpected status %d from modrinth", resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return corerr.Wrap(corerr.Internal, "decoding modrinth response", err)
	}
	return nil
}

// CompatibleVersions filters and orders versions for an instance per
// §4.7: loader and mc_version must both be present on the version, newest
// date_published first, and among ties (same instant) the version whose
// PrimaryFile is set sorts first. date_published is the dominant key, so
// the comparator checks it before ever consulting the primary-file flag.
func CompatibleVersions(versions []ProjectVersion, loader mcversion.LoaderType, mcVersion string) []ProjectVersion {
	var out []ProjectVersion
	for _, v := range versions {
		if !contains(v.Loaders, string(loader)) || !contains(v.GameVersions, mcVersion) {
			continue
		}
		out = append(out, v)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].DatePublished.Equal(out[j].DatePublished) {
			return out[i].DatePublished.After(out[j].DatePublished)
		}
		_, iHasPrimary := out[i].PrimaryFile()
		_, jHasPrimary := out[j].PrimaryFile()
		return iHasPrimary && !jHasPrimary
	})
	return out
}

func contains(list []string, want string) bool {
	for _, v := range list {
		if v == want {
			return true
		}
	}
	return false
}

// FormatDownloads renders a download count for display (1.2K, 3.4M, ...).
func FormatDownloads(count int) string {
	switch {
	case count >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(count)/1_000_000)
	case count >= 1_000:
		return fmt.Sprintf("%.1fK", float64(count)/1_000)
	default:
		return fmt.Sprintf("%d", count)
	}
}

func JoinLoaders(loaders []string) string {
	return strings.Join(loaders, ", ")
}

// InstallMod downloads a mod version's primary file into dest (the
// instance's .minecraft/mods directory), verifying its SHA-1.
func InstallMod(ctx context.Context, f *fetch.Fetcher, version ProjectVersion, destDir string) error {
	file, ok := version.PrimaryFile()
	if !ok {
		return corerr.New(corerr.NotFound, "version has no primary file")
	}

	item := fetch.Item{
		URL:      file.URL,
		Path:     destDir + "/" + file.Filename,
		Expected: fetch.Expected{SHA1: file.Hashes.SHA1, Size: file.Size},
	}
	result, err := f.Download(ctx, []fetch.Item{item}, nil)
	if err != nil {
		return err
	}
	if result.Failed > 0 {
		return result.Errors[0]
	}
	return nil
}
