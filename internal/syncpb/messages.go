package syncpb

// Row is a cloud row keyed by snake_case column name.
type Row = map[string]any

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterResponse struct {
	UserID string `json:"user_id"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	UserID       string `json:"user_id"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	Tier         string `json:"tier"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type RefreshTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type PingRequest struct{}

type PingResponse struct {
	ServerTime string `json:"server_time"`
}

type AccountRequest struct{}

type AccountResponse struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Tier   string `json:"tier"`
}

type SetTierRequest struct {
	Email string `json:"email"`
	Tier  string `json:"tier"`
}

type SetTierResponse struct{}

type UpsertRequest struct {
	Collection string `json:"collection"`
	Row        Row    `json:"row"`
}

type UpsertResponse struct {
	Row Row `json:"row"`
}

type DeleteRequest struct {
	Collection string `json:"collection"`
	ID         string `json:"id"`
}

type DeleteResponse struct {
	Deleted bool `json:"deleted"`
}

type PushAllRequest struct {
	Collection string `json:"collection"`
	Rows       []Row  `json:"rows"`
}

type PushAllResponse struct {
	Rows []Row `json:"rows"`
}

type PullAllRequest struct {
	CurrentPlatform string   `json:"current_platform"`
	Platforms       []string `json:"platforms"`
	Collections     []string `json:"collections,omitempty"`
}

type PullAllResponse struct {
	Collections map[string][]Row `json:"collections"`
}

type CountRequest struct {
	Collection      string `json:"collection"`
	CurrentPlatform string `json:"current_platform"`
	Platform        string `json:"platform"`
}

type CountResponse struct {
	Count int64 `json:"count"`
}

type PresignMediaRequest struct {
	Filename string `json:"filename"`
}

type PresignMediaResponse struct {
	UploadURL string `json:"upload_url"`
	PublicURL string `json:"public_url"`
	Key       string `json:"key"`
}
