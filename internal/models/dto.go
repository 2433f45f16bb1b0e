package models

type StartInterviewRequest struct {
	Topic      string `json:"topic"`
	Difficulty string `json:"difficulty"`
	MaxRounds  int    `json:"max_rounds,omitempty"`
}

type StartInterviewResponse struct {
	SessionID string `json:"session_id"`
	Topic     string `json:"topic"`
	MaxRounds int    `json:"max_rounds"`
}

type InterviewMeta struct {
	IsInterview  bool   `json:"is_interview"`
	Topic        string `json:"topic"`
	Difficulty   string `json:"difficulty"`
	Status       string `json:"status"`
	CurrentRound int    `json:"current_round"`
	MaxRounds    int    `json:"max_rounds"`
}

type HistoryItem struct {
	ID       uint      `json:"id"`
	Role     string    `json:"role"`
	Content  string    `json:"content"`
	FileMeta *FileMeta `json:"file_meta,omitempty"`
}

type FileMeta struct {
	Name string `json:"name"`
	Mime string `json:"mime"`
}

type HistoryResponse struct {
	Data          []HistoryItem  `json:"data"`
	InterviewMeta *InterviewMeta `json:"interview_meta,omitempty"`
	ReportData    *ReportData    `json:"report_data,omitempty"`
}

type GenerateReportRequest struct {
	SessionID string `json:"session_id"`
}

type ReportData struct {
	Score       int            `json:"score"`
	Comment     string         `json:"comment"`
	Strengths   []string       `json:"strengths"`
	Suggestions []string       `json:"suggestions"`
	Dimensions  map[string]int `json:"dimensions,omitempty"`
}

type IngestResponse struct {
	SourceLabel string `json:"source_label"`
	ChunksAdded int    `json:"chunks_added"`
}

type KnowledgeSource struct {
	SourceLabel string `json:"filename"`
	ChunkCount  int    `json:"chunks_count"`
}
