package scene

import "errors"

// Attachment errors. They are programmer errors raised while a picture is
// being assembled; callers match them with errors.Is.
var (
	// ErrAlreadyParented: the child already has a different parent.
	ErrAlreadyParented = errors.New("drawable already has a parent")
	// ErrDuplicateChild: the child was already added to this parent.
	ErrDuplicateChild = errors.New("drawable is already a child of this parent")
	// ErrCycle: the child is the parent itself or one of its ancestors.
	ErrCycle = errors.New("drawable tree would contain a cycle")
	// ErrActorBound: the drawable belongs to another actor.
	ErrActorBound = errors.New("drawable is bound to another actor")
	// ErrDuplicateDrawable: the drawable is already in the actor's draw order.
	ErrDuplicateDrawable = errors.New("drawable already added to actor")
	// ErrPictureBound: the actor has already been added to a picture.
	ErrPictureBound = errors.New("actor already belongs to a picture")
	// ErrTimelineBound: a channel is registered with another timeline.
	ErrTimelineBound = errors.New("channel is bound to another timeline")
	// ErrNoPicture: a keyframe operation on an actor that is not in a picture.
	ErrNoPicture = errors.New("actor is not attached to a picture")
	// ErrNoRoot: the actor has no root drawable.
	ErrNoRoot = errors.New("actor has no root drawable")
	// ErrDrawOrder: the flat draw order does not match the drawable tree.
	ErrDrawOrder = errors.New("draw order does not match drawable tree")
)
