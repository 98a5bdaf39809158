package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"somfy-to-mqtt/application"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/publicsuffix"
)

const (
	OverkizServerSomfyEurope  = "somfy_europe"
	OverkizServerSomfyAmerica = "somfy_america"
	OverkizServerSomfyOceania = "somfy_oceania"

	OverkizDefaultTimeout = 30 * time.Second
)

var OverkizEndpoints = map[string]string{
	OverkizServerSomfyEurope:  "https://ha101-1.overkiz.com/enduser-mobile-web/enduserAPI/",
	OverkizServerSomfyAmerica: "https://ha401-1.overkiz.com/enduser-mobile-web/enduserAPI/",
	OverkizServerSomfyOceania: "https://ha201-1.overkiz.com/enduser-mobile-web/enduserAPI/",
}

var (
	ErrOverkizNotLoggedIn = fmt.Errorf("not logged in")
)

// OverkizError is the error body returned by the cloud on non 2xx responses.
type OverkizError struct {
	StatusCode int    `json:"-"`
	ErrorCode  string `json:"errorCode"`
	Message    string `json:"error"`
}

func (e *OverkizError) Error() string {
	return fmt.Sprintf("overkiz: %d %s: %s", e.StatusCode, e.ErrorCode, e.Message)
}

type LoginResponse struct {
	Success bool        `json:"success"`
	Roles   []RoleModel `json:"roles"`
}

type RoleModel struct {
	Name string `json:"name"`
}

type DeviceModel struct {
	OID              string       `json:"oid"`
	DeviceURL        string       `json:"deviceURL"`
	Label            string       `json:"label"`
	ControllableName string       `json:"controllableName"`
	UIClass          string       `json:"uiClass"`
	Widget           string       `json:"widget"`
	Available        bool         `json:"available"`
	Enabled          bool         `json:"enabled"`
	States           []StateModel `json:"states"`
}

type StateModel struct {
	Name  string `json:"name"`
	Type  int    `json:"type"`
	Value any    `json:"value"`
}

type CommandModel struct {
	Name       string `json:"name"`
	Parameters []any  `json:"parameters"`
}

type ActionModel struct {
	DeviceURL string         `json:"deviceURL"`
	Commands  []CommandModel `json:"commands"`
}

type ExecRequest struct {
	Label   string        `json:"label"`
	Actions []ActionModel `json:"actions"`
}

type ExecResponse struct {
	ExecID string `json:"execId"`
}

type OverkizClientParams struct {
	Username string
	Password string
	Endpoint string

	HTTPClient *http.Client

	Log zerolog.Logger
}

type OverkizClient struct {
	params OverkizClientParams

	http *http.Client

	mu         sync.Mutex
	loggedIn   bool
	listenerID string

	log zerolog.Logger
}

func NewOverkizClient(params OverkizClientParams) (*OverkizClient, error) {
	if params.Username == "" || params.Password == "" {
		return nil, fmt.Errorf("username and password are required")
	}
	if params.Endpoint == "" {
		params.Endpoint = OverkizEndpoints[OverkizServerSomfyEurope]
	}
	if !strings.HasSuffix(params.Endpoint, "/") {
		params.Endpoint += "/"
	}

	httpClient := params.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: OverkizDefaultTimeout}
	}
	if httpClient.Jar == nil {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, err
		}
		httpClient.Jar = jar
	}

	return &OverkizClient{params: params, http: httpClient, log: params.Log}, nil
}

func (o *OverkizClient) Login(ctx context.Context) error {
	form := url.Values{}
	form.Set("userId", o.params.Username)
	form.Set("userPassword", o.params.Password)

	var resp LoginResponse
	err := o.send(ctx, http.MethodPost, "login", strings.NewReader(form.Encode()),
		"application/x-www-form-urlencoded", &resp)
	if err != nil {
		if isBadCredentials(err) {
			return fmt.Errorf("%w: %v", application.ErrAuthFailed, err)
		}
		return err
	}
	if !resp.Success {
		return application.ErrAuthFailed
	}

	o.mu.Lock()
	o.loggedIn = true
	o.mu.Unlock()

	roles := make([]string, 0, len(resp.Roles))
	for _, role := range resp.Roles {
		roles = append(roles, role.Name)
	}
	o.log.Info().Strs("roles", roles).Msg("logged in")
	return nil
}

// isBadCredentials reports whether a login error rejects the credentials.
// Other 400 responses, such as throttling, stay retryable.
func isBadCredentials(err error) bool {
	var apiErr *OverkizError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.StatusCode {
	case http.StatusUnauthorized:
		return true
	case http.StatusBadRequest:
		return apiErr.ErrorCode == "AUTHENTICATION_ERROR" ||
			strings.Contains(strings.ToLower(apiErr.Message), "bad credentials")
	default:
		return false
	}
}

func (o *OverkizClient) Logout(ctx context.Context) error {
	o.mu.Lock()
	o.loggedIn = false
	o.listenerID = ""
	o.mu.Unlock()

	return o.send(ctx, http.MethodPost, "logout", nil, "", nil)
}

func (o *OverkizClient) Devices(ctx context.Context) ([]application.Device, error) {
	var resp []DeviceModel
	if err := o.do(ctx, http.MethodGet, "setup/devices", nil, &resp); err != nil {
		return nil, err
	}
	return overkizDevicesToAppDevices(resp), nil
}

func (o *OverkizClient) DeviceStates(ctx context.Context, deviceURL string) ([]application.StateAttribute, error) {
	var resp []StateModel
	path := "setup/devices/" + url.PathEscape(deviceURL) + "/states"
	if err := o.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return overkizStatesToAppStates(resp), nil
}

func (o *OverkizClient) ExecuteCommand(ctx context.Context, deviceURL string, command application.Command) (string, error) {
	params := command.Parameters
	if params == nil {
		params = []any{}
	}

	req := ExecRequest{
		Label: "somfy-to-mqtt",
		Actions: []ActionModel{{
			DeviceURL: deviceURL,
			Commands:  []CommandModel{{Name: command.Name, Parameters: params}},
		}},
	}

	var resp ExecResponse
	if err := o.do(ctx, http.MethodPost, "exec/apply", req, &resp); err != nil {
		return "", err
	}
	return resp.ExecID, nil
}

// do sends a JSON request and logs in again once if the session expired.
func (o *OverkizClient) do(ctx context.Context, method, path string, in any, out any) error {
	o.mu.Lock()
	loggedIn := o.loggedIn
	o.mu.Unlock()
	if !loggedIn {
		return ErrOverkizNotLoggedIn
	}

	err := o.sendJSON(ctx, method, path, in, out)

	var apiErr *OverkizError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
		o.log.Warn().Msg("session expired, logging in again")
		if err := o.Login(ctx); err != nil {
			return err
		}
		return o.sendJSON(ctx, method, path, in, out)
	}
	return err
}

func (o *OverkizClient) sendJSON(ctx context.Context, method, path string, in any, out any) error {
	if in == nil {
		return o.send(ctx, method, path, nil, "", out)
	}

	data, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return o.send(ctx, method, path, bytes.NewReader(data), "application/json", out)
}

func (o *OverkizClient) send(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, o.params.Endpoint+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := o.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &OverkizError{StatusCode: resp.StatusCode}
		if data, err := io.ReadAll(resp.Body); err == nil {
			_ = json.Unmarshal(data, apiErr)
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

var _ application.CloudClient = &OverkizClient{}

func overkizDevicesToAppDevices(resp []DeviceModel) []application.Device {
	var devices []application.Device
	for _, device := range resp {
		id := device.OID
		if id == "" {
			id = device.DeviceURL
		}
		devices = append(devices, application.Device{
			ID:               id,
			Label:            device.Label,
			ControllableName: device.ControllableName,
			UIClass:          device.UIClass,
			DeviceURL:        device.DeviceURL,
		})
	}
	return devices
}

func overkizStatesToAppStates(resp []StateModel) []application.StateAttribute {
	var states []application.StateAttribute
	for _, state := range resp {
		states = append(states, application.StateAttribute{
			Name:  state.Name,
			Type:  state.Type,
			Value: state.Value,
		})
	}
	return states
}
