package engine

import "time"

// GameStatus is the lifecycle state of a single game
type GameStatus string

const (
	StatusPlaying GameStatus = "playing"
	StatusWon     GameStatus = "won"
	StatusLost    GameStatus = "lost"
)

// MinePhase tracks whether mines have been placed for the current game
type MinePhase string

const (
	MinesUnassigned MinePhase = "unassigned"
	MinesPlaced     MinePhase = "placed"
)

// CellVariant is the presentation category of a cell
type CellVariant string

const (
	VariantEmpty  CellVariant = "empty"
	VariantBomb   CellVariant = "bomb"
	VariantFlag   CellVariant = "flag"
	VariantNumber CellVariant = "number"
)

// RejectReason names the precondition that made an action a no-op
type RejectReason string

const (
	ReasonNone            RejectReason = ""
	ReasonNotPlaying      RejectReason = "not_playing"
	ReasonOutOfRange      RejectReason = "out_of_range"
	ReasonAlreadyRevealed RejectReason = "already_revealed"
	ReasonFlagged         RejectReason = "flagged"
	ReasonFlagLimit       RejectReason = "flag_limit"
	ReasonNotRevealed     RejectReason = "not_revealed"
	ReasonNoNumber        RejectReason = "no_number"
	ReasonFlagMismatch    RejectReason = "flag_mismatch"
)

const (
	// Validation constants
	MinDimension  = 1
	MaxDimension  = 50
	MinMines      = 1
	NeighborCount = 26
)

// Cell represents a single cube of the minefield
type Cell struct {
	X                 int  `json:"x"`
	Y                 int  `json:"y"`
	Z                 int  `json:"z"`
	Index             int  `json:"index"`
	IsMine            bool `json:"is_mine"`
	IsRevealed        bool `json:"is_revealed"`
	IsFlagged         bool `json:"is_flagged"`
	NeighborMineCount int  `json:"neighbor_mine_count"`
}

// Messages are the player-facing texts attached to state transitions
type Messages struct {
	Welcome string `json:"welcome"`
	Victory string `json:"victory"`
	Defeat  string `json:"defeat"`
}

// GameConfig describes the dimensions and mechanics of a game
type GameConfig struct {
	Name           string   `json:"name"`
	Description    string   `json:"description,omitempty"`
	Width          int      `json:"width"`
	Height         int      `json:"height"`
	Depth          int      `json:"depth"`
	MineCount      int      `json:"mine_count"`
	FirstClickSafe bool     `json:"first_click_safe"`
	AutoReveal     bool     `json:"auto_reveal"`
	Messages       Messages `json:"messages"`
}

// GameState represents the complete state of one game
type GameState struct {
	Cells         []Cell     `json:"cells"`
	Width         int        `json:"width"`
	Height        int        `json:"height"`
	Depth         int        `json:"depth"`
	MineCount     int        `json:"mine_count"`
	FlagCount     int        `json:"flag_count"`
	RevealedCount int        `json:"revealed_count"`
	GameStatus    GameStatus `json:"game_status"`
	FirstClick    bool       `json:"first_click"`
	MinePhase     MinePhase  `json:"mine_phase"`
	StartTime     *time.Time `json:"start_time,omitempty"`
	EndTime       *time.Time `json:"end_time,omitempty"`
	Message       string     `json:"message"`
	ConfigName    string     `json:"config_name"`
	Moves         int        `json:"moves"`
}

// ActionResult is the outcome of reveal, flag and chord operations
type ActionResult struct {
	Success  bool         `json:"success"`
	GameOver bool         `json:"game_over"`
	Won      bool         `json:"won"`
	Reason   RejectReason `json:"reason,omitempty"`
	Revealed []int        `json:"revealed,omitempty"`
}

// Stats summarizes the progress of a game
type Stats struct {
	RevealedCount  int   `json:"revealed_count"`
	FlagCount      int   `json:"flag_count"`
	MineCount      int   `json:"mine_count"`
	RemainingMines int   `json:"remaining_mines"`
	Progress       int   `json:"progress"`
	ElapsedTime    int64 `json:"elapsed_time_ms"`
}

// Elapsed returns ElapsedTime as a duration
func (s Stats) Elapsed() time.Duration {
	return time.Duration(s.ElapsedTime) * time.Millisecond
}

func rejected(reason RejectReason) ActionResult {
	return ActionResult{Reason: reason}
}
