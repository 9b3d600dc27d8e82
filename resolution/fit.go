package resolution

// FitPreview returns the size of a preview surface that covers container
// while keeping the preview's aspect ratio. The surface overflows the
// container along one axis and is expected to be center-cropped.
// displayOrientation is in degrees; at 90 and 270 the preview is laid out sideways.
func FitPreview(container, preview Size, displayOrientation int) Size {
	if container.Width <= 0 || container.Height <= 0 || preview.Width <= 0 || preview.Height <= 0 {
		return container
	}

	previewWidth, previewHeight := preview.Width, preview.Height
	if ((displayOrientation%180)+180)%180 != 0 {
		previewWidth, previewHeight = preview.Height, preview.Width
	}

	if container.Width*previewHeight > container.Height*previewWidth {
		return Size{Width: container.Width, Height: container.Width * previewHeight / previewWidth}
	}
	return Size{Width: container.Height * previewWidth / previewHeight, Height: container.Height}
}
