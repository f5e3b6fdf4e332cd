package models

// StopReason explains why pagination ended.
type StopReason string

const (
	StopNone        StopReason = ""
	StopNoNext      StopReason = "next control missing, hidden or disabled"
	StopPageCap     StopReason = "page cap reached"
	StopStagnant    StopReason = "content stopped changing"
	StopInteraction StopReason = "interaction with next control failed"
	StopRenderer    StopReason = "renderer fault"
	StopCancelled   StopReason = "cancelled"
)

// WalkStats summarises one pagination run.
type WalkStats struct {
	ScrapeCycles int
	Pages        int
	Stagnations  int
	Emitted      int
	Skipped      int
	Reason       StopReason
}
