package component

// Hook names a lifecycle method of a host component.
type Hook string

const (
	WillMount        Hook = "componentWillMount"
	DidMount         Hook = "componentDidMount"
	WillUnmount      Hook = "componentWillUnmount"
	WillReceiveProps Hook = "componentWillReceiveProps"
	ShouldUpdate     Hook = "shouldComponentUpdate"
	WillUpdate       Hook = "componentWillUpdate"
	DidUpdate        Hook = "componentDidUpdate"
)

// LifecycleHooks are the hooks every runtime triggers on.
var LifecycleHooks = []Hook{
	DidMount,
	WillUnmount,
	WillMount,
	WillReceiveProps,
	ShouldUpdate,
	WillUpdate,
	DidUpdate,
}
