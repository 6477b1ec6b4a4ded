package services

// Blob key layout. Originals and stamped output live under the document,
// signature images under the recipient who uploaded them.

func originalArtifactKey(documentID string) string {
	return "documents/" + documentID + "/original.pdf"
}

func signedArtifactKey(documentID string) string {
	return "documents/" + documentID + "/signed.pdf"
}

func signatureImageKey(userID, imageID string) string {
	return "signatures/" + userID + "/" + imageID
}
