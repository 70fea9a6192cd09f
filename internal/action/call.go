package action

import "fmt"

// Method names an API method.
type Method string

// API methods.
const (
	MethodSave            Method = "save"
	MethodNavigate        Method = "navigate"
	MethodFocus           Method = "focus"
	MethodBlur            Method = "blur"
	MethodTakeKeyboard    Method = "takeKeyboard"
	MethodReleaseKeyboard Method = "releaseKeyboard"
	MethodInsertRow       Method = "insertRow"
	MethodDeleteRow       Method = "deleteRow"
)

// Call is one recorded API call. The concrete types are SaveCall,
// NavigateCall, FocusCall, BlurCall, TakeKeyboardCall, ReleaseKeyboardCall,
// InsertRowCall and DeleteRowCall.
type Call interface {
	Method() Method
	fmt.Stringer

	apply(api API) error
}

// SaveCall records API.Save.
type SaveCall struct{ Value any }

func (SaveCall) Method() Method        { return MethodSave }
func (c SaveCall) String() string      { return fmt.Sprintf("save(%v)", c.Value) }
func (c SaveCall) apply(api API) error { return api.Save(c.Value) }

// NavigateCall records API.Navigate.
type NavigateCall struct{ Direction Direction }

func (NavigateCall) Method() Method        { return MethodNavigate }
func (c NavigateCall) String() string      { return "navigate(" + c.Direction.String() + ")" }
func (c NavigateCall) apply(api API) error { return api.Navigate(c.Direction) }

// FocusCall records API.Focus.
type FocusCall struct{}

func (FocusCall) Method() Method      { return MethodFocus }
func (FocusCall) String() string      { return "focus()" }
func (FocusCall) apply(api API) error { return api.Focus() }

// BlurCall records API.Blur.
type BlurCall struct{}

func (BlurCall) Method() Method      { return MethodBlur }
func (BlurCall) String() string      { return "blur()" }
func (BlurCall) apply(api API) error { return api.Blur() }

// TakeKeyboardCall records API.TakeKeyboard.
type TakeKeyboardCall struct{}

func (TakeKeyboardCall) Method() Method      { return MethodTakeKeyboard }
func (TakeKeyboardCall) String() string      { return "takeKeyboard()" }
func (TakeKeyboardCall) apply(api API) error { return api.TakeKeyboard() }

// ReleaseKeyboardCall records API.ReleaseKeyboard.
type ReleaseKeyboardCall struct{}

func (ReleaseKeyboardCall) Method() Method      { return MethodReleaseKeyboard }
func (ReleaseKeyboardCall) String() string      { return "releaseKeyboard()" }
func (ReleaseKeyboardCall) apply(api API) error { return api.ReleaseKeyboard() }

// InsertRowCall records API.InsertRow.
type InsertRowCall struct{ Position Position }

func (InsertRowCall) Method() Method        { return MethodInsertRow }
func (c InsertRowCall) String() string      { return "insertRow(" + c.Position.String() + ")" }
func (c InsertRowCall) apply(api API) error { return api.InsertRow(c.Position) }

// DeleteRowCall records API.DeleteRow.
type DeleteRowCall struct{}

func (DeleteRowCall) Method() Method      { return MethodDeleteRow }
func (DeleteRowCall) String() string      { return "deleteRow()" }
func (DeleteRowCall) apply(api API) error { return api.DeleteRow() }
