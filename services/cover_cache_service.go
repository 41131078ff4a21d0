package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
)

const (
	maxCoverBytes     = 5 << 20
	maxCoverRedirects = 5
)

// ErrCoverUnavailable is returned when a cover image cannot be fetched
var ErrCoverUnavailable = errors.New("cover image unavailable")

var errBlockedAddress = errors.New("address is not publicly routable")

// CoverCacheService keeps local copies of challenge cover images
type CoverCacheService struct {
	httpClient *http.Client
	baseDir    string
}

// NewCoverCacheService creates a new cover cache rooted at baseDir. Unless
// allowPrivateHosts is set, downloads only connect to public addresses.
func NewCoverCacheService(baseDir string, allowPrivateHosts bool) *CoverCacheService {
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if !allowPrivateHosts {
		// Checked on the resolved address, so DNS names and redirects are covered.
		// A proxy would hide the target, so none is used.
		dialer.Control = publicAddressOnly
		transport.Proxy = nil
	}
	transport.DialContext = dialer.DialContext

	svc := &CoverCacheService{
		httpClient: &http.Client{
			Timeout:       30 * time.Second,
			Transport:     transport,
			CheckRedirect: checkCoverRedirect,
		},
		baseDir: baseDir,
	}

	// Ensure the cover directory exists at startup
	if err := svc.ensureDir(); err != nil {
		log.Printf("Warning: Could not create cover cache directory: %v", err)
	}

	return svc
}

// publicAddressOnly rejects connections to loopback, private, link-local,
// multicast and unspecified addresses
func publicAddressOnly(network, address string, _ syscall.RawConn) error {
	addrPort, err := netip.ParseAddrPort(address)
	if err != nil {
		return fmt.Errorf("%w: %s", errBlockedAddress, address)
	}
	ip := addrPort.Addr().Unmap()
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() ||
		ip.IsInterfaceLocalMulticast() || ip.IsMulticast() {
		return fmt.Errorf("%w: %s", errBlockedAddress, ip)
	}
	return nil
}

func checkCoverRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= maxCoverRedirects {
		return fmt.Errorf("stopped after %d redirects", maxCoverRedirects)
	}
	if req.URL.Scheme != "http" && req.URL.Scheme != "https" {
		return fmt.Errorf("redirect to unsupported scheme %q", req.URL.Scheme)
	}
	return nil
}

// ensureDir creates the cover directory if it doesn't exist
func (s *CoverCacheService) ensureDir() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// Path returns the local file path for a challenge cover. Only challenge
// UUIDs map to a path.
func (s *CoverCacheService) Path(challengeID string) (string, bool) {
	id, err := uuid.Parse(challengeID)
	if err != nil {
		return "", false
	}
	return filepath.Join(s.baseDir, id.String()), true
}

// Has checks if a cover is already cached locally
func (s *CoverCacheService) Has(challengeID string) bool {
	path, ok := s.Path(challengeID)
	if !ok {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

// Cache downloads the cover at coverURL for a challenge, replacing any cached copy
func (s *CoverCacheService) Cache(ctx context.Context, challengeID, coverURL string) error {
	path, ok := s.Path(challengeID)
	if !ok {
		return fmt.Errorf("invalid challenge id %q", challengeID)
	}

	u, err := url.Parse(coverURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%w: unsupported url", ErrCoverUnavailable)
	}

	if err := s.ensureDir(); err != nil {
		return fmt.Errorf("failed to create cover cache directory: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCoverUnavailable, err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCoverUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: HTTP %d", ErrCoverUnavailable, resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "image/") {
		return fmt.Errorf("%w: content type %q", ErrCoverUnavailable, ct)
	}

	// Write to a temp file first so readers never see a partial image
	tmp, err := os.CreateTemp(s.baseDir, "cover-*")
	if err != nil {
		return fmt.Errorf("failed to create cover file: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, io.LimitReader(resp.Body, maxCoverBytes+1))
	closeErr := tmp.Close()
	if err != nil {
		return fmt.Errorf("failed to save cover: %w", err)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to save cover: %w", closeErr)
	}
	if n > maxCoverBytes {
		return fmt.Errorf("%w: larger than %d bytes", ErrCoverUnavailable, maxCoverBytes)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to store cover: %w", err)
	}

	log.Printf("Cached cover for challenge %s", challengeID)
	return nil
}

// Remove deletes the cached cover of a challenge
func (s *CoverCacheService) Remove(challengeID string) {
	path, ok := s.Path(challengeID)
	if !ok {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Failed to remove cover for challenge %s: %v", challengeID, err)
	}
}
