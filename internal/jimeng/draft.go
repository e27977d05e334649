package jimeng

// Draft documents describe a generation job. They are serialized to JSON and
// embedded as a string in the submit request.

const (
	imageDraftVersion    = "3.0.2"
	videoDraftVersion    = "3.2.8"
	videoDraftMinVersion = "3.0.5"
	videoComponentMinVer = "1.0.0"
)

// node is the type/id pair every draft element carries.
type node struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type draft[C any] struct {
	node
	MinVersion      string `json:"min_version"`
	IsFromTSN       bool   `json:"is_from_tsn"`
	Version         string `json:"version"`
	MainComponentID string `json:"main_component_id"`
	ComponentList   []C    `json:"component_list"`
}

type imageComponent struct {
	node
	MinVersion   string         `json:"min_version"`
	GenerateType string         `json:"generate_type"`
	AIGCMode     string         `json:"aigc_mode"`
	Abilities    imageAbilities `json:"abilities"`
}

type imageAbilities struct {
	node
	Generate imageGenerate `json:"generate"`
}

type imageGenerate struct {
	node
	CoreParam     imageCoreParam `json:"core_param"`
	HistoryOption node           `json:"history_option"`
}

type imageCoreParam struct {
	node
	Model          string         `json:"model"`
	Prompt         string         `json:"prompt"`
	NegativePrompt string         `json:"negative_prompt"`
	Seed           int64          `json:"seed"`
	SampleStrength float64        `json:"sample_strength"`
	ImageRatio     int            `json:"image_ratio"`
	LargeImageInfo largeImageInfo `json:"large_image_info"`
}

type largeImageInfo struct {
	node
	Height int `json:"height"`
	Width  int `json:"width"`
}

type videoComponent struct {
	node
	MinVersion   string            `json:"min_version"`
	Metadata     componentMetadata `json:"metadata"`
	GenerateType string            `json:"generate_type"`
	AIGCMode     string            `json:"aigc_mode"`
	Abilities    videoAbilities    `json:"abilities"`
}

type componentMetadata struct {
	node
	CreatedPlatform        int    `json:"created_platform"`
	CreatedPlatformVersion string `json:"created_platform_version"`
	CreatedTimeInMS        int64  `json:"created_time_in_ms"`
	CreatedDID             string `json:"created_did"`
}

type videoAbilities struct {
	node
	GenVideo genVideo `json:"gen_video"`
}

type genVideo struct {
	node
	TextToVideoParams textToVideoParams `json:"text_to_video_params"`
	VideoTaskExtra    string            `json:"video_task_extra"`
}

type textToVideoParams struct {
	node
	ModelReqKey      string          `json:"model_req_key"`
	Priority         int             `json:"priority"`
	Seed             int64           `json:"seed"`
	VideoAspectRatio string          `json:"video_aspect_ratio"`
	VideoGenInputs   []videoGenInput `json:"video_gen_inputs"`
}

type videoGenInput struct {
	DurationMS      int              `json:"duration_ms"`
	FirstFrameImage *frameDescriptor `json:"first_frame_image,omitempty"`
	EndFrameImage   *frameDescriptor `json:"end_frame_image,omitempty"`
	FPS             int              `json:"fps"`
	ID              string           `json:"id"`
	MinVersion      string           `json:"min_version"`
	Prompt          string           `json:"prompt"`
	Resolution      string           `json:"resolution"`
	Type            string           `json:"type"`
	VideoMode       int              `json:"video_mode"`
}

type frameDescriptor struct {
	Format       string `json:"format"`
	Height       int    `json:"height"`
	ID           string `json:"id"`
	ImageURI     string `json:"image_uri"`
	Name         string `json:"name"`
	PlatformType int    `json:"platform_type"`
	SourceFrom   string `json:"source_from"`
	Type         string `json:"type"`
	URI          string `json:"uri"`
	Width        int    `json:"width"`
}

// submitRequest is the body of the draft generate call.
type submitRequest struct {
	Extend         submitExtend   `json:"extend"`
	SubmitID       string         `json:"submit_id"`
	MetricsExtra   string         `json:"metrics_extra"`
	DraftContent   string         `json:"draft_content"`
	HTTPCommonInfo httpCommonInfo `json:"http_common_info"`
}

type submitExtend struct {
	RootModel             string         `json:"root_model"`
	TemplateID            *string        `json:"template_id,omitempty"`
	VideoCommerceInfo     *commerceInfo  `json:"m_video_commerce_info,omitempty"`
	VideoCommerceInfoList []commerceInfo `json:"m_video_commerce_info_list,omitempty"`
}

type commerceInfo struct {
	BenefitType     string `json:"benefit_type"`
	ResourceID      string `json:"resource_id"`
	ResourceIDType  string `json:"resource_id_type"`
	ResourceSubType string `json:"resource_sub_type"`
}

type httpCommonInfo struct {
	AID int `json:"aid"`
}

type submitResponse struct {
	AIGCData struct {
		HistoryRecordID flexString `json:"history_record_id"`
	} `json:"aigc_data"`
}

var videoCommerce = commerceInfo{
	BenefitType:     "basic_video_operation_vgfm_v_three",
	ResourceID:      "generate_video",
	ResourceIDType:  "str",
	ResourceSubType: "aigc",
}
