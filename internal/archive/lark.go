package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkdrive "github.com/larksuite/oapi-sdk-go/v3/service/drive/v1"
	"golang.org/x/sync/singleflight"
)

// DefaultLarkWebURL is the web host used to build document links.
const DefaultLarkWebURL = "https://www.larksuite.com"

// Credentials is the JSON credential file of a Lark app.
type Credentials struct {
	AppID     string `json:"app_id"`
	AppSecret string `json:"app_secret"`
}

// LoadCredentials reads a credential file.
func LoadCredentials(path string) (Credentials, error) {
	var c Credentials
	data, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("read lark credentials: %w", err)
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("parse lark credentials %s: %w", path, err)
	}
	if c.AppID == "" || c.AppSecret == "" {
		return c, fmt.Errorf("lark credentials %s: app_id and app_secret are required", path)
	}
	return c, nil
}

// LarkOptions configures a LarkDrive.
type LarkOptions struct {
	Credentials
	// OpenBaseURL overrides the Open API host, e.g. for Feishu or tests.
	OpenBaseURL string
	// WebURL is the host of browsable links. Default DefaultLarkWebURL.
	WebURL string
	// RequestTimeout bounds every Open API call. Zero leaves calls bounded
	// by their context only.
	RequestTimeout time.Duration
}

// LarkDrive archives into Lark Drive. Folder ids are Drive folder tokens.
type LarkDrive struct {
	client *lark.Client
	web    string

	mu      sync.Mutex
	folders map[string]string // parent + "/" + name -> token
	group   singleflight.Group
}

// NewLarkDrive builds a Drive client for an app.
func NewLarkDrive(opts LarkOptions) (*LarkDrive, error) {
	if opts.AppID == "" || opts.AppSecret == "" {
		return nil, errors.New("lark drive: app id and secret are required")
	}
	var clientOpts []lark.ClientOptionFunc
	if opts.OpenBaseURL != "" {
		clientOpts = append(clientOpts, lark.WithOpenBaseUrl(opts.OpenBaseURL))
	}
	if opts.RequestTimeout > 0 {
		clientOpts = append(clientOpts, lark.WithReqTimeout(opts.RequestTimeout))
	}
	return NewLarkDriveWithClient(lark.NewClient(opts.AppID, opts.AppSecret, clientOpts...), opts.WebURL), nil
}

// NewLarkDriveWithClient wraps an existing SDK client.
func NewLarkDriveWithClient(client *lark.Client, webURL string) *LarkDrive {
	if webURL == "" {
		webURL = DefaultLarkWebURL
	}
	return &LarkDrive{
		client:  client,
		web:     strings.TrimRight(webURL, "/"),
		folders: make(map[string]string),
	}
}

func (d *LarkDrive) EnsureFolder(ctx context.Context, base string, year int, month time.Month) (string, error) {
	yearToken, err := d.ensureChild(ctx, base, YearFolder(year))
	if err != nil {
		return "", err
	}
	return d.ensureChild(ctx, yearToken, MonthFolder(month))
}

// ensureChild returns the token of the folder name under parent, creating it
// when absent. Concurrent callers for the same folder share one lookup.
func (d *LarkDrive) ensureChild(ctx context.Context, parent, name string) (string, error) {
	key := parent + "/" + name
	d.mu.Lock()
	token, ok := d.folders[key]
	d.mu.Unlock()
	if ok {
		return token, nil
	}

	v, err, _ := d.group.Do(key, func() (any, error) {
		token, err := d.findFolder(ctx, parent, name)
		if err != nil {
			return "", err
		}
		if token == "" {
			if token, err = d.createFolder(ctx, parent, name); err != nil {
				return "", err
			}
		}
		d.mu.Lock()
		d.folders[key] = token
		d.mu.Unlock()
		return token, nil
	})
	if err != nil {
		return "", &ArchiveError{Op: "ensure folder", Name: name, Err: err}
	}
	return v.(string), nil
}

func (d *LarkDrive) findFolder(ctx context.Context, parent, name string) (string, error) {
	pageToken := ""
	for {
		b := larkdrive.NewListFileReqBuilder().
			FolderToken(parent).
			PageSize(200)
		if pageToken != "" {
			b.PageToken(pageToken)
		}
		resp, err := d.client.Drive.V1.File.List(ctx, b.Build())
		if err != nil {
			return "", fmt.Errorf("list folder: %w", err)
		}
		if !resp.Success() {
			return "", apiError(resp.Code, resp.Msg)
		}
		if resp.Data == nil {
			return "", nil
		}
		for _, f := range resp.Data.Files {
			if f == nil {
				continue
			}
			if deref(f.Type) == "folder" && deref(f.Name) == name {
				return deref(f.Token), nil
			}
		}
		if resp.Data.HasMore == nil || !*resp.Data.HasMore {
			return "", nil
		}
		pageToken = deref(resp.Data.NextPageToken)
		if pageToken == "" {
			return "", nil
		}
	}
}

func (d *LarkDrive) createFolder(ctx context.Context, parent, name string) (string, error) {
	req := larkdrive.NewCreateFolderFileReqBuilder().
		Body(larkdrive.NewCreateFolderFileReqBodyBuilder().
			Name(name).
			FolderToken(parent).
			Build()).
		Build()
	resp, err := d.client.Drive.V1.File.CreateFolder(ctx, req)
	if err != nil {
		return "", fmt.Errorf("create folder: %w", err)
	}
	if !resp.Success() {
		return "", apiError(resp.Code, resp.Msg)
	}
	if resp.Data == nil || deref(resp.Data.Token) == "" {
		return "", errors.New("create folder: empty token")
	}
	return deref(resp.Data.Token), nil
}

func (d *LarkDrive) Upload(ctx context.Context, path, folderID, filename string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", &ArchiveError{Op: "upload", Name: filename, Err: err}
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return "", &ArchiveError{Op: "upload", Name: filename, Err: err}
	}

	req := larkdrive.NewUploadAllFileReqBuilder().
		Body(larkdrive.NewUploadAllFileReqBodyBuilder().
			FileName(filename).
			ParentType("explorer").
			ParentNode(folderID).
			Size(int(info.Size())).
			File(f).
			Build()).
		Build()
	resp, err := d.client.Drive.V1.File.UploadAll(ctx, req)
	if err != nil {
		return "", &ArchiveError{Op: "upload", Name: filename, Err: err}
	}
	if !resp.Success() {
		return "", &ArchiveError{Op: "upload", Name: filename, Err: apiError(resp.Code, resp.Msg)}
	}
	if resp.Data == nil || deref(resp.Data.FileToken) == "" {
		return "", &ArchiveError{Op: "upload", Name: filename, Err: errors.New("empty file token")}
	}
	return d.web + "/file/" + deref(resp.Data.FileToken), nil
}

func (d *LarkDrive) FolderURL(folderID string) string {
	return d.web + "/drive/folder/" + folderID
}

func apiError(code int, msg string) error {
	return fmt.Errorf("lark api error %d: %s", code, msg)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
