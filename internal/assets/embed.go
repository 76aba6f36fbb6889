package assets

import "embed"

//go:embed captionsync.example.yaml
//go:embed popup/*
var Embedded embed.FS

// Nom de l'asset de config par défaut (chemin DANS Embedded)
const DefaultConfigAsset = "captionsync.example.yaml"

// PopupDir : racine des fichiers de la page de préférences (servie par l'API).
const PopupDir = "popup"
