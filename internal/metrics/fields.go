package metrics

const (
	AttrMethod = "method"
	AttrPath   = "path"
	AttrStatus = "status"
	AttrStage  = "stage"
	AttrReason = "reason"
)
